package outcome

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

type Upload struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Registered types are not reliable across hosts (.csv is missing from Go's
// built-in table), so the common ones are pinned here.
var extensionTypes = map[string]string{
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".txt":  "text/plain",
	".json": "application/json",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

// InspectFile declares an upload's type from its extension. The file is
// stat'ed but never opened.
func InspectFile(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, err
	}
	if info.IsDir() {
		return Upload{}, fmt.Errorf("%s is a directory", path)
	}
	return Upload{
		Name:     filepath.Base(path),
		MIMEType: TypeByName(path),
		Size:     info.Size(),
	}, nil
}

// TypeByName guesses a MIME type from a file name, falling back to
// application/octet-stream.
func TypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
