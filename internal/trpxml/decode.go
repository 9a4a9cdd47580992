package trpxml

import (
	"bufio"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"backend-trpreport/internal/shared/apperr"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/errgroup"
)

// MalformedXMLError reports a document that could not be read or parsed.
type MalformedXMLError struct {
	File string
	Err  error
}

func (e *MalformedXMLError) Error() string {
	return fmt.Sprintf("malformed xml in %s: %v", e.File, e.Err)
}

func (e *MalformedXMLError) Unwrap() error { return e.Err }

func (e *MalformedXMLError) Kind() apperr.Kind { return apperr.KindInput }

var errNoRoot = errors.New("document has no root element")

// Decode parses one document into its root element.
func Decode(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var stack []*Node
	var root *Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				n.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					n.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("document has more than one root element")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errNoRoot
	}
	return root, nil
}

// DecodeFile parses the document at path, wrapping failures in
// MalformedXMLError.
func DecodeFile(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &MalformedXMLError{File: filepath.Base(path), Err: err}
	}
	defer f.Close()

	root, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, &MalformedXMLError{File: filepath.Base(path), Err: err}
	}
	return root, nil
}

// DecodeAll parses the given documents concurrently. Results keep the order
// of paths; an empty path yields a nil tree. The first failure cancels the
// remaining work.
func DecodeAll(ctx context.Context, paths ...string) ([]*Node, error) {
	out := make([]*Node, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		if p == "" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			root, err := DecodeFile(p)
			if err != nil {
				return err
			}
			out[i] = root
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
