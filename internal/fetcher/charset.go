package fetcher

import (
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DecodeCharset wraps r so its contents are transcoded from the named
// charset to UTF-8. Election-board CSV exports frequently arrive as
// windows-1252. An empty or utf-8 name returns r unchanged.
func DecodeCharset(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" || charset == "utf-8" || charset == "UTF-8" {
		return r, nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "charset: unknown encoding %q", charset)
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}
