// Package dzi reads and writes Deep Zoom Image descriptor files.
//
// A descriptor looks like:
//
//	<?xml version="1.0" encoding="UTF-8"?>
//	<Image TileSize="254" Overlap="1" Format="jpg" xmlns="http://schemas.microsoft.com/deepzoom/2008">
//	  <Size Width="1000" Height="600"></Size>
//	</Image>
//
// Width and Height are the dimensions of the original source image.
package dzi

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"

	"github.com/menta2k/deepzoom/pkg/types"
)

// Namespace is the Deep Zoom 2008 schema namespace
const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

// Extension is the descriptor file extension, without the dot
const Extension = "dzi"

// Document is the content of a descriptor file
type Document struct {
	TileSize int
	Overlap  int
	Format   string
	Width    int
	Height   int
}

// New builds the descriptor for a source of the given size
func New(cfg types.PyramidConfig, width, height int) Document {
	return Document{
		TileSize: cfg.TileSize,
		Overlap:  cfg.Overlap,
		Format:   cfg.Format.Extension(),
		Width:    width,
		Height:   height,
	}
}

type xmlImage struct {
	XMLName  xml.Name `xml:"Image"`
	TileSize int      `xml:"TileSize,attr"`
	Overlap  int      `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Xmlns    string   `xml:"xmlns,attr"`
	Size     xmlSize  `xml:"Size"`
}

type xmlSize struct {
	Width  int `xml:"Width,attr"`
	Height int `xml:"Height,attr"`
}

// parsed form; encoding/xml reports xmlns through the element name
type xmlImageIn struct {
	XMLName  xml.Name
	TileSize int     `xml:"TileSize,attr"`
	Overlap  int     `xml:"Overlap,attr"`
	Format   string  `xml:"Format,attr"`
	Size     xmlSize `xml:"Size"`
}

// Validate checks the document describes a usable pyramid
func (d Document) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: image is %dx%d", types.ErrInvalidDimension, d.Width, d.Height)
	}
	if d.TileSize <= 0 {
		return fmt.Errorf("%w: tile size %d", types.ErrInvalidConfig, d.TileSize)
	}
	if d.Overlap < 0 {
		return fmt.Errorf("%w: overlap %d", types.ErrInvalidConfig, d.Overlap)
	}
	if d.Format == "" {
		return fmt.Errorf("%w: empty format", types.ErrInvalidConfig)
	}
	return nil
}

// Marshal serializes d with an XML declaration, UTF-8 encoded
func Marshal(d Document) ([]byte, error) {
	doc := xmlImage{
		TileSize: d.TileSize,
		Overlap:  d.Overlap,
		Format:   d.Format,
		Xmlns:    Namespace,
		Size:     xmlSize{Width: d.Width, Height: d.Height},
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode descriptor: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Unmarshal parses a descriptor
func Unmarshal(data []byte) (Document, error) {
	var in xmlImageIn
	if err := xml.Unmarshal(data, &in); err != nil {
		return Document{}, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if in.XMLName.Local != "Image" {
		return Document{}, fmt.Errorf("failed to parse descriptor: root element is %q, want Image", in.XMLName.Local)
	}
	if in.XMLName.Space != "" && in.XMLName.Space != Namespace {
		return Document{}, fmt.Errorf("failed to parse descriptor: unknown namespace %q", in.XMLName.Space)
	}
	return Document{
		TileSize: in.TileSize,
		Overlap:  in.Overlap,
		Format:   in.Format,
		Width:    in.Size.Width,
		Height:   in.Size.Height,
	}, nil
}

// WriteFile writes d to path, replacing any existing file
func WriteFile(path string, d Document) error {
	data, err := Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", types.ErrDescriptorWrite, path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", types.ErrDescriptorWrite, err)
	}
	return nil
}

// ReadFile reads and parses the descriptor at path
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read descriptor: %w", err)
	}
	return Unmarshal(data)
}
