package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/meigma/aurb/bank"
	"github.com/meigma/aurb/decode"
	"github.com/meigma/aurb/fetch"
	"github.com/meigma/aurb/stream"
)

// BankScheme is the URL scheme of assets served from a registered catalog.
const BankScheme = "aurb"

// BankURL returns the source of asset id inside bank bankID.
func BankURL(bankID, id string) string {
	return BankScheme + "://" + bankID + "/" + url.PathEscape(id)
}

// ParseBankURL splits an aurb:// source into bank and asset ids.
func ParseBankURL(src string) (bankID, id string, ok bool) {
	rest, found := strings.CutPrefix(src, BankScheme+"://")
	if !found {
		return "", "", false
	}
	bankID, escaped, found := strings.Cut(rest, "/")
	if !found || bankID == "" || escaped == "" {
		return "", "", false
	}
	id, err := url.PathUnescape(escaped)
	if err != nil {
		return "", "", false
	}
	return bankID, id, true
}

// catalogFor returns the catalog entry behind an aurb:// source.
func (l *Loader) catalogFor(src string) (*bank.Catalog, string, error) {
	bankID, id, ok := ParseBankURL(src)
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed bank source %q", ErrNotFound, src)
	}
	l.mu.Lock()
	cat := l.catalogs[bankID]
	l.mu.Unlock()
	if cat == nil {
		return nil, "", fmt.Errorf("%w: bank %q", ErrNotFound, bankID)
	}
	if _, ok := cat.Lookup(id); !ok {
		return nil, "", fmt.Errorf("%w: %q in bank %q", ErrNotFound, id, bankID)
	}
	return cat, id, nil
}

// formatHint returns the container format suggested by a source: the codec
// tag for catalog entries, the extension otherwise.
func (l *Loader) formatHint(src string) string {
	if fetch.Scheme(src) == BankScheme {
		if cat, id, err := l.catalogFor(src); err == nil {
			e, _ := cat.Lookup(id)
			return bank.FormatForCodec(e.Codec)
		}
		return ""
	}
	return bank.FormatFromExt(src)
}

// fetchBytes returns the encoded content of src.
func (l *Loader) fetchBytes(ctx context.Context, src string) ([]byte, error) {
	l.fetches.Add(1)
	if fetch.Scheme(src) == BankScheme {
		cat, id, err := l.catalogFor(src)
		if err != nil {
			return nil, err
		}
		return cat.Read(id)
	}
	return l.retrier.Fetch(ctx, src)
}

func (l *Loader) fetchAndDecode(ctx context.Context, src, hint string) (*decode.Buffer, error) {
	data, err := l.fetchBytes(ctx, src)
	if err != nil {
		return nil, err
	}
	l.decodes.Add(1)
	buf, err := l.decoder.Decode(ctx, data, hint)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", src, err)
	}
	return buf, nil
}

// opener returns the lazy source of a streamed entry. Catalog entries read
// straight from the bank buffer, HTTP sources use range requests when the
// server supports them, and everything else is fetched whole on first read.
func (l *Loader) opener(src string) stream.Opener {
	return func(ctx context.Context) (stream.Source, error) {
		scheme := fetch.Scheme(src)
		switch {
		case scheme == BankScheme:
			cat, id, err := l.catalogFor(src)
			if err != nil {
				return nil, err
			}
			e, _ := cat.Lookup(id)
			if !e.Compressed() {
				sec, _ := cat.Section(id)
				return sec, nil
			}
			data, err := cat.Read(id)
			if err != nil {
				return nil, err
			}
			return bytes.NewReader(data), nil
		case l.rangeHTTP && (scheme == "http" || scheme == "https"):
			rs, err := fetch.NewRangeSource(ctx, src, l.httpOpts...)
			if err == nil {
				return rs, nil
			}
			if !errors.Is(err, fetch.ErrRangeUnsupported) {
				return nil, err
			}
			l.log().Debug("range requests unsupported, fetching whole source", "src", src)
		}
		data, err := l.fetchBytes(ctx, src)
		if err != nil {
			return nil, err
		}
		return bytes.NewReader(data), nil
	}
}
