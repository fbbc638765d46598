package dump

import (
	"io"

	"github.com/goccy/go-json"
)

// JSON writes doc as an indented JSON document. Packet and message bodies are
// encoded by their concrete types.
func JSON(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
