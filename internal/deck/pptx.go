package deck

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"text/template"

	"github.com/klauspost/compress/zip"
)

const (
	slideWidth  = 9144000
	slideHeight = 6858000
)

type part struct {
	name string
	tmpl string
	data any
}

var partTemplates = template.Must(template.New("pptx").Funcs(template.FuncMap{
	"x":   escapeXML,
	"add": func(a, b int) int { return a + b },
}).Parse(templateSource))

// writePackage emits the OOXML parts of a presentation with one slide per
// entry and the image as ppt/media/image1.png.
func writePackage(w io.Writer, slides []slide, image []byte) error {
	zw := zip.NewWriter(w)

	data := struct {
		Slides      []slide
		SlideWidth  int
		SlideHeight int
	}{slides, slideWidth, slideHeight}

	parts := []part{
		{"[Content_Types].xml", "contentTypes", data},
		{"_rels/.rels", "rootRels", data},
		{"docProps/app.xml", "app", data},
		{"docProps/core.xml", "core", data},
		{"ppt/presentation.xml", "presentation", data},
		{"ppt/_rels/presentation.xml.rels", "presentationRels", data},
		{"ppt/slideMasters/slideMaster1.xml", "slideMaster", data},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", "slideMasterRels", data},
		{"ppt/slideLayouts/slideLayout1.xml", "slideLayout", data},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", "slideLayoutRels", data},
		{"ppt/theme/theme1.xml", "theme", data},
	}
	for i, s := range slides {
		n := strconv.Itoa(i + 1)
		parts = append(parts,
			part{"ppt/slides/slide" + n + ".xml", "slide", s},
			part{"ppt/slides/_rels/slide" + n + ".xml.rels", "slideRels", s},
		)
	}

	for _, p := range parts {
		f, err := zw.Create(p.name)
		if err != nil {
			return err
		}
		if err := partTemplates.ExecuteTemplate(f, p.tmpl, p.data); err != nil {
			return err
		}
	}

	media, err := zw.CreateHeader(&zip.FileHeader{Name: "ppt/media/image1.png", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := media.Write(image); err != nil {
		return err
	}
	return zw.Close()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
