// Package confpatch edits configuration files produced or consumed by the
// node: rendering placeholder templates and rewriting single TOML values
// in place.
package confpatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/creachadair/atomicfile"
	"github.com/creachadair/tomledit"
	"github.com/creachadair/tomledit/parser"
	"github.com/creachadair/tomledit/transform"
)

// Placeholders of the price feeder config template.
const (
	FeederAddrPlaceholder    = "FEEDER_ADDR"
	ChainIDPlaceholder       = "CHAIN_ID"
	ValidatorAddrPlaceholder = "VALIDATOR_ADDR"
)

// ErrKeyNotFound is returned when the key to rewrite or read is absent.
var ErrKeyNotFound = errors.New("key not found")

const renderedFilePerm = 0644

// Placeholder returns the token replaced by the value of key, e.g. <CHAIN_ID>.
func Placeholder(key string) string {
	return "<" + key + ">"
}

// Render replaces every <KEY> token of template whose KEY is in values.
// Tokens without a value are left as they are.
func Render(template string, values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, Placeholder(k), values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RenderTemplate renders the template file src into dst.
func RenderTemplate(src, dst string, values map[string]string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading template: %w", err)
	}

	rendered := Render(string(data), values)
	if _, err := atomicfile.WriteAll(dst, strings.NewReader(rendered), renderedFilePerm); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}

// SetString rewrites the string value of key in the TOML file at path,
// keeping comments and layout intact.
func SetString(ctx context.Context, path string, key parser.Key, value string) error {
	doc, err := loadDocument(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	plan := transform.Plan{{
		Desc: fmt.Sprintf("Set %s to %q", key, value),
		T: transform.Func(func(_ context.Context, doc *tomledit.Document) error {
			e := doc.First(key...)
			if e == nil || !e.IsMapping() {
				return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
			}
			e.KeyValue.Value.X = parser.MustValue(strconv.Quote(value)).X
			return nil
		}),
	}}
	if err := plan.Apply(ctx, doc); err != nil {
		return fmt.Errorf("updating %s: %w", path, err)
	}

	var buf bytes.Buffer
	if err := tomledit.Format(&buf, doc); err != nil {
		return fmt.Errorf("formatting %s: %w", path, err)
	}
	if _, err := atomicfile.WriteAll(path, &buf, info.Mode().Perm()); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LookupString decodes the TOML file at path and returns the string stored
// under key.
func LookupString(path string, key parser.Key) (string, error) {
	var doc map[string]interface{}
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}

	var cur interface{} = doc
	for _, part := range key {
		table, ok := cur.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		if cur, ok = table[part]; !ok {
			return "", fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
	}

	s, ok := cur.(string)
	if !ok {
		return "", fmt.Errorf("%s is a %T, not a string", key, cur)
	}
	return s, nil
}

func loadDocument(path string) (*tomledit.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := tomledit.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
