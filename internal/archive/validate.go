package archive

import (
	"os"
	"path/filepath"
)

// Layout of a TRP package, relative to the extraction root.
const (
	RootFolder    = "trp"
	ContentFile   = "content.xml"
	RouteFile     = "route.xml"
	PositionsFile = "positions/wptrack.xml"
	LogsFolder    = "logs"
)

// RequiredFiles must all be present under RootFolder.
var RequiredFiles = []string{ContentFile, PositionsFile}

// Tree is a validated extraction.
type Tree struct {
	Root      string
	Content   string
	Positions string
	// Route is empty when route.xml is absent.
	Route string
	Logs  string
}

// Validate checks the extracted layout and reports every missing required
// file in a single error.
func Validate(root string) (Tree, error) {
	base := filepath.Join(root, RootFolder)
	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		return Tree{}, &MissingArchiveFolderError{Folder: RootFolder}
	}

	var missing []string
	for _, rel := range RequiredFiles {
		if !isFile(filepath.Join(base, filepath.FromSlash(rel))) {
			missing = append(missing, rel)
		}
	}
	if len(missing) > 0 {
		return Tree{}, &MissingRequiredFilesError{Files: missing}
	}

	tree := Tree{
		Root:      base,
		Content:   filepath.Join(base, ContentFile),
		Positions: filepath.Join(base, filepath.FromSlash(PositionsFile)),
		Logs:      filepath.Join(base, LogsFolder),
	}
	if route := filepath.Join(base, RouteFile); isFile(route) {
		tree.Route = route
	}
	return tree, nil
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
