// Package dzi models Deep Zoom images: the descriptor, its resolution
// pyramid, the tiles covering a viewport and the pan/zoom state of a viewer.
package dzi

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strconv"

	"github.com/mitchellh/mapstructure"
	d "github.com/tj/go-debug"
)

var debug = d.Debug("dzi")

// Namespace is the XML namespace written by Deep Zoom tools.
const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

// Descriptor holds the tiling parameters of a Deep Zoom image.
type Descriptor struct {
	Format   string `json:"format"`
	TileSize int    `json:"tileSize"`
	Overlap  int    `json:"overlap"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	URL      string `json:"url,omitempty"`
}

// xmlImage catches every attribute so that absent ones can be told apart
// from zero values.
type xmlImage struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Size  *struct {
		Attrs []xml.Attr `xml:",any,attr"`
	} `xml:"Size"`
}

type jsonImage struct {
	URL      string `mapstructure:"Url"`
	Format   string `mapstructure:"Format"`
	TileSize int    `mapstructure:"TileSize"`
	Overlap  int    `mapstructure:"Overlap"`
	Size     struct {
		Width  int `mapstructure:"Width"`
		Height int `mapstructure:"Height"`
	} `mapstructure:"Size"`
}

// Parse reads a descriptor from its XML or JSON form.
//
// The returned error is always a ParseError.
func Parse(payload []byte) (*Descriptor, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, malformed("", errors.New("empty payload"))
	}

	var desc *Descriptor
	var err error
	if trimmed[0] == '{' {
		desc, err = parseJSON(trimmed)
	} else {
		desc, err = parseXML(trimmed)
	}
	if err != nil {
		debug("parse failed: %v", err)
		return nil, err
	}

	if err = desc.validate(); err != nil {
		return nil, err
	}

	debug("parsed %s %dx%d tiles of %d (+%d)", desc.Format, desc.Width, desc.Height, desc.TileSize, desc.Overlap)
	return desc, nil
}

func parseXML(payload []byte) (*Descriptor, error) {
	dec := xml.NewDecoder(bytes.NewReader(payload))
	seen := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if !seen {
				return nil, malformed("", errors.New("no XML element found"))
			}
			return nil, missing("Image")
		}
		if err != nil {
			return nil, malformed("", err)
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		seen = true
		if se.Name.Local != "Image" {
			continue
		}

		var img xmlImage
		if err := dec.DecodeElement(&img, &se); err != nil {
			return nil, malformed("Image", err)
		}
		return img.descriptor()
	}
}

func (img xmlImage) descriptor() (*Descriptor, error) {
	desc := &Descriptor{}

	format, ok := attr(img.Attrs, "Format")
	if !ok {
		return nil, missing("Format")
	}
	desc.Format = format
	desc.URL, _ = attr(img.Attrs, "Url")

	var err error
	if desc.TileSize, err = intAttr(img.Attrs, "TileSize", true); err != nil {
		return nil, err
	}
	if desc.Overlap, err = intAttr(img.Attrs, "Overlap", false); err != nil {
		return nil, err
	}

	if img.Size == nil {
		return nil, missing("Size")
	}
	if desc.Width, err = intAttr(img.Size.Attrs, "Width", true); err != nil {
		return nil, err
	}
	if desc.Height, err = intAttr(img.Size.Attrs, "Height", true); err != nil {
		return nil, err
	}

	return desc, nil
}

func attr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func intAttr(attrs []xml.Attr, name string, required bool) (int, error) {
	value, ok := attr(attrs, name)
	if !ok {
		if required {
			return 0, missing(name)
		}
		return 0, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, malformed(name, err)
	}
	return n, nil
}

func parseJSON(payload []byte) (*Descriptor, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, malformed("", err)
	}

	raw, ok := doc["Image"].(map[string]interface{})
	if !ok {
		return nil, missing("Image")
	}
	for _, field := range []string{"Format", "TileSize", "Size"} {
		if _, ok := raw[field]; !ok {
			return nil, missing(field)
		}
	}
	size, ok := raw["Size"].(map[string]interface{})
	if !ok {
		return nil, malformed("Size", errors.New("Size is not an object"))
	}
	for _, field := range []string{"Width", "Height"} {
		if _, ok := size[field]; !ok {
			return nil, missing(field)
		}
	}

	var img jsonImage
	if err := mapstructure.WeakDecode(raw, &img); err != nil {
		return nil, malformed("Image", err)
	}

	return &Descriptor{
		Format:   img.Format,
		TileSize: img.TileSize,
		Overlap:  img.Overlap,
		Width:    img.Size.Width,
		Height:   img.Size.Height,
		URL:      img.URL,
	}, nil
}

func (desc *Descriptor) validate() error {
	if desc.Format == "" {
		return ParseError{Kind: InvalidField, Field: "Format", Err: errors.New("empty")}
	}
	if desc.TileSize < 1 {
		return invalid("TileSize", desc.TileSize)
	}
	if desc.Overlap < 0 {
		return invalid("Overlap", desc.Overlap)
	}
	if desc.Width < 1 {
		return invalid("Width", desc.Width)
	}
	if desc.Height < 1 {
		return invalid("Height", desc.Height)
	}
	return nil
}

// MarshalXML writes the descriptor in the Deep Zoom XML form.
func (desc Descriptor) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Image"}
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "xmlns"}, Value: Namespace},
		{Name: xml.Name{Local: "Format"}, Value: desc.Format},
		{Name: xml.Name{Local: "Overlap"}, Value: strconv.Itoa(desc.Overlap)},
		{Name: xml.Name{Local: "TileSize"}, Value: strconv.Itoa(desc.TileSize)},
	}
	if desc.URL != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "Url"}, Value: desc.URL})
	}

	size := xml.StartElement{
		Name: xml.Name{Local: "Size"},
		Attr: []xml.Attr{
			{Name: xml.Name{Local: "Width"}, Value: strconv.Itoa(desc.Width)},
			{Name: xml.Name{Local: "Height"}, Value: strconv.Itoa(desc.Height)},
		},
	}

	for _, tok := range []xml.Token{start, size, size.End(), start.End()} {
		if err := e.EncodeToken(tok); err != nil {
			return err
		}
	}
	return e.Flush()
}
