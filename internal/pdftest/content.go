package pdftest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Content is the decoded drawing of page 1: its content stream and the
// form XObjects stamped onto the document, in object order.
type Content struct {
	Page  string
	Forms []string
}

// ReadContent decodes the page 1 content stream and every form XObject of pdf
func ReadContent(pdf []byte) (*Content, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(pdf), conf)
	if err != nil {
		return nil, err
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, err
	}

	pageDict, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		return nil, err
	}
	page, err := ctx.PageContent(pageDict, 1)
	if err != nil {
		return nil, err
	}

	nrs := make([]int, 0, len(ctx.Table))
	for nr := range ctx.Table {
		nrs = append(nrs, nr)
	}
	sort.Ints(nrs)

	out := &Content{Page: string(page)}
	for _, nr := range nrs {
		entry := ctx.Table[nr]
		if entry == nil || entry.Free || entry.Object == nil {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if st := sd.Subtype(); st == nil || *st != "Form" {
			continue
		}
		if err := sd.Decode(); err != nil {
			return nil, fmt.Errorf("form object %d: %w", nr, err)
		}
		out.Forms = append(out.Forms, string(sd.Content))
	}
	return out, nil
}

// Shows reports whether any form draws the literal string text
func (c *Content) Shows(text string) bool {
	needle := "(" + text + ") Tj"
	for _, f := range c.Forms {
		if strings.Contains(f, needle) {
			return true
		}
	}
	return false
}

// Drawn counts the forms that draw text
func (c *Content) Drawn() int {
	n := 0
	for _, f := range c.Forms {
		if strings.Contains(f, " Tj") {
			n++
		}
	}
	return n
}
