package engine

import (
	"fmt"

	"github.com/allenai/datamap-go/internal/codec"
	"github.com/allenai/datamap-go/internal/model"
)

// openReaderOrIOErr wraps codec.OpenReader so every strategy reports a
// uniformly classified IoError (spec §7) on open failure instead of a bare
// error.
func openReaderOrIOErr(path string) (*codec.LineReader, error) {
	r, err := codec.OpenReader(path)
	if err != nil {
		return nil, model.NewIOError(fmt.Sprintf("opening %s", path), err)
	}
	return r, nil
}
