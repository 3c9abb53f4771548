// Copyright © 2026, SAS Institute Inc., Cary, NC, USA.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package pdfview

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sassoftware/viya-pdf-view/logger"
)

// PageInfo is a JSON-friendly summary of one page's resolved attributes.
type PageInfo struct {
	Number       int        `json:"number"`
	Valid        bool       `json:"valid"`
	MediaBox     Rectangle  `json:"mediaBox"`
	CropBox      Rectangle  `json:"cropBox"`
	BleedBox     Rectangle  `json:"bleedBox"`
	TrimBox      Rectangle  `json:"trimBox"`
	ArtBox       Rectangle  `json:"artBox"`
	Rotate       int        `json:"rotate"`
	Cropped      bool       `json:"cropped"`
	DPI          float64    `json:"dpi"`
	PixelWidth   int        `json:"pixelWidth"`
	PixelHeight  int        `json:"pixelHeight"`
	HasThumbnail bool       `json:"hasThumbnail"`
	Annotations  int        `json:"annotations"`
	LastModified string     `json:"lastModified,omitempty"`
	Modified     *time.Time `json:"modified,omitempty"`
	XMP          *PageXMP   `json:"xmp,omitempty"`
}

// PageXMP holds the fields read from a page-level /Metadata stream.
type PageXMP struct {
	Title       string `json:"title,omitempty"`
	CreatorTool string `json:"creatorTool,omitempty"`
	ModifyDate  string `json:"modifyDate,omitempty"`
}

// Info summarizes the page. Pixel sizes are computed at dpi in both
// directions for the page's own rotation.
func (p *Page) Info(dpi float64) PageInfo {
	box := p.MediaBox()
	if p.IsCropped() {
		box = p.CropBox()
	}
	w, h := PixelSize(box, dpi, dpi, p.Rotate())
	info := PageInfo{
		Number:       p.num,
		Valid:        p.ok,
		MediaBox:     p.MediaBox(),
		CropBox:      p.CropBox(),
		BleedBox:     p.BleedBox(),
		TrimBox:      p.TrimBox(),
		ArtBox:       p.ArtBox(),
		Rotate:       p.Rotate(),
		Cropped:      p.IsCropped(),
		DPI:          dpi,
		PixelWidth:   w,
		PixelHeight:  h,
		HasThumbnail: p.HasThumb(),
		Annotations:  len(p.Annotations()),
	}
	if lm := p.attrs.LastModified(); lm.Kind() == String {
		info.LastModified = lm.Text()
		if t, err := ParseDate(info.LastModified); err == nil {
			info.Modified = &t
		}
	}
	if x, err := readXMP(p.attrs.Metadata()); err != nil {
		logger.Warn(fmt.Sprintf("page %d: reading XMP: %v", p.num, err), "page", p.num)
	} else if x != "" {
		f, ok := parseXMPWithXML(x)
		if !ok {
			f = parseXMPFallback(x)
		}
		info.XMP = &PageXMP{Title: f.Title, CreatorTool: f.CreatorTool, ModifyDate: f.ModifyDate}
	}
	return info
}

// MarshalJSON writes a rectangle as its [x1 y1 x2 y2] array.
func (r Rectangle) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X1, r.Y1, r.X2, r.Y2})
}

// WritePageInfo writes infos as indented JSON.
func WritePageInfo(w io.Writer, infos []PageInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(infos)
}

// Version returns the version in the file header, such as "1.7".
func (r *Reader) Version() string {
	buf := make([]byte, 64)
	n, _ := r.f.ReadAt(buf, 0)
	line := string(buf[:n])
	i := strings.Index(line, "%PDF-")
	if i < 0 {
		return ""
	}
	line = line[i+len("%PDF-"):]
	if j := strings.IndexAny(line, "\r\n"); j >= 0 {
		line = line[:j]
	}
	return strings.TrimSpace(line)
}

var dateRE = regexp.MustCompile(`^(?:D:)?(\d{4})(\d{2})?(\d{2})?(\d{2})?(\d{2})?(\d{2})?(?:([Zz+-])(?:(\d{2})'?(?:(\d{2})'?)?)?)?`)

// ParseDate parses a date string of the form D:YYYYMMDDHHmmSSOHH'mm'.
// Every field after the year is optional; a missing offset means UTC.
func ParseDate(s string) (time.Time, error) {
	m := dateRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	num := func(i, def int) int {
		if m[i] == "" {
			return def
		}
		n, _ := strconv.Atoi(m[i])
		return n
	}
	year, month, day := num(1, 0), num(2, 1), num(3, 1)
	hour, min, sec := num(4, 0), num(5, 0), num(6, 0)
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	loc := time.UTC
	if sign := m[7]; sign == "+" || sign == "-" {
		off := num(8, 0)*3600 + num(9, 0)*60
		if sign == "-" {
			off = -off
		}
		loc = time.FixedZone("", off)
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, loc), nil
}

// Minimal XML models to pull common XMP fields in a namespace
type xmpPacket struct {
	XMLName xml.Name `xml:"xmpmeta"`
	RDF     rdfRDF   `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# RDF"`
}

type rdfRDF struct {
	Descriptions []rdfDescription `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Description"`
}

type rdfDescription struct {
	// dc:title (rdf:Alt)
	Title altString `xml:"http://purl.org/dc/elements/1.1/ title"`

	XMPCreatorTool string `xml:"http://ns.adobe.com/xap/1.0/ CreatorTool"`
	XMPModifyDate  string `xml:"http://ns.adobe.com/xap/1.0/ ModifyDate"`
}

type altString struct {
	Alt struct {
		LI []string `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# li"`
	} `xml:"http://www.w3.org/1999/02/22-rdf-syntax-ns# Alt"`
}

func (a altString) First() string {
	if len(a.Alt.LI) > 0 {
		return strings.TrimSpace(a.Alt.LI[0])
	}
	return ""
}

type xmpFields struct {
	Title, CreatorTool, ModifyDate string
}

// readXMP returns the XML held by a /Metadata stream, or "" if md is not a stream.
func readXMP(md Value) (string, error) {
	if md.Kind() != Stream {
		return "", nil
	}
	logger.Debug("found XMP Stream", true)
	rc := md.Reader()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// parseXMPWithXML tries to parse XMP XML using encoding/xml into xmpPacket.
func parseXMPWithXML(x string) (xmpFields, bool) {
	var pkt xmpPacket
	dec := xml.NewDecoder(strings.NewReader(x))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	if err := dec.Decode(&pkt); err != nil {
		return xmpFields{}, false
	}

	var f xmpFields
	for _, d := range pkt.RDF.Descriptions {
		if t := d.Title.First(); t != "" {
			f.Title = t
		}
		if ct := strings.TrimSpace(d.XMPCreatorTool); ct != "" {
			f.CreatorTool = ct
		}
		if md := strings.TrimSpace(d.XMPModifyDate); md != "" {
			f.ModifyDate = md
		}
	}
	return f, true
}

// parseXMPFallback performs a simple tag search when XML parsing fails.
func parseXMPFallback(xmp string) xmpFields {
	logger.Debug("XMP is not well formed, searching tags")
	get := func(cands ...string) string {
		for _, t := range cands {
			open, close := "<"+t+">", "</"+t+">"
			if i := strings.Index(xmp, open); i >= 0 {
				if j := strings.Index(xmp[i+len(open):], close); j >= 0 {
					return strings.TrimSpace(stripXMLTags(xmp[i+len(open) : i+len(open)+j]))
				}
			}
		}
		return ""
	}
	return xmpFields{
		Title:       get("dc:title", "pdf:Title", "xmp:Title"),
		CreatorTool: get("xmp:CreatorTool"),
		ModifyDate:  get("xmp:ModifyDate"),
	}
}

// stripXMLTags removes simple XML tags from a string.
func stripXMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch r {
		case '<':
			inTag = true
		case '>':
			inTag = false
		default:
			if !inTag {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
