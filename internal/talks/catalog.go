// Package talks loads the static table of public talk titles.
package talks

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/example/speaker-scheduler/internal/scheduler"
)

// Entry is a single numbered talk outline.
type Entry struct {
	Number int    `yaml:"number" json:"number"`
	Title  string `yaml:"title" json:"title"`
}

type document struct {
	Talks []Entry `yaml:"talks"`
}

// Catalog maps talk numbers to titles. The zero value is an empty catalog.
type Catalog struct {
	titles map[int]string
}

// Empty returns a catalog without titles; numeric lookups still work against it.
func Empty() *Catalog {
	return &Catalog{titles: map[int]string{}}
}

// Load reads a YAML catalog from path. An empty path yields an empty catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Empty(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open talk catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a YAML catalog of the form:
//
//	talks:
//	  - number: 1
//	    title: "..."
func Parse(r io.Reader) (*Catalog, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("decode talk catalog: %w", err)
	}

	titles := make(map[int]string, len(doc.Talks))
	for _, entry := range doc.Talks {
		if !scheduler.ValidTalkNumber(entry.Number) {
			return nil, fmt.Errorf("talk catalog: %w: %d", scheduler.ErrTalkNumberOutOfRange, entry.Number)
		}
		if _, dup := titles[entry.Number]; dup {
			return nil, fmt.Errorf("talk catalog: duplicate number %d", entry.Number)
		}
		titles[entry.Number] = strings.TrimSpace(entry.Title)
	}
	return &Catalog{titles: titles}, nil
}

// Title implements scheduler.TalkTitles.
func (c *Catalog) Title(number int) (string, bool) {
	if c == nil {
		return "", false
	}
	title, ok := c.titles[number]
	return title, ok
}

// Len returns the number of titled talks.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.titles)
}

// Entries lists the catalog ordered by number.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	out := make([]Entry, 0, len(c.titles))
	for number, title := range c.titles {
		out = append(out, Entry{Number: number, Title: title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
