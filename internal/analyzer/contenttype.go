package analyzer

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"uploadsim/internal/model"
)

// knownTypes is consulted before the platform table so results do not depend on
// what the host's mime.types happens to contain.
var knownTypes = map[string]string{
	".txt":  "text/plain",
	".text": "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".xml":  "text/xml",
	".py":   "text/x-python",
	".c":    "text/x-c",
	".h":    "text/x-c",
	".js":   "text/javascript",
	".json": "application/json",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
	".mp3":  "audio/mpeg",
	".wav":  "audio/x-wav",
	".mp4":  "video/mp4",
	".bin":  "application/octet-stream",
}

// textExtensions get a line count even when their content type is not text/*.
var textExtensions = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".py":   {},
	".json": {},
	".csv":  {},
	".log":  {},
	".ini":  {},
	".cfg":  {},
}

// ContentTypeByName guesses a content type from the file extension. It returns an
// empty string when the extension is unknown.
func ContentTypeByName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if ct, ok := knownTypes[ext]; ok {
		return ct
	}
	return stripParams(mime.TypeByExtension(ext))
}

// ContentTypeBySniffing inspects the leading bytes of an object. Detection that only
// reaches the generic binary type counts as unknown.
func ContentTypeBySniffing(head []byte) string {
	ct := stripParams(mimetype.Detect(head).String())
	if ct == model.DefaultContentType {
		return ""
	}
	return ct
}

// IsTextLike reports whether an object should get a line count.
func IsTextLike(name, contentType string) bool {
	if strings.HasPrefix(contentType, "text/") {
		return true
	}
	_, ok := textExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func stripParams(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		base, _, _ := strings.Cut(ct, ";")
		return strings.TrimSpace(strings.ToLower(base))
	}
	return mediaType
}
