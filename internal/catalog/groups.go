package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ArchiveRow is one firmware archive as presented in a device's table.
type ArchiveRow struct {
	VariantLabel string `json:"variant_label"`
	AssetName    string `json:"asset_name"`
	DownloadURL  string `json:"download_url"`
	SizeText     string `json:"size_text"`
}

// SourceGroup holds the archive rows attributed to one build source.
type SourceGroup struct {
	Name string
	Rows []ArchiveRow
}

// SourceGroups is an ordered source-to-rows mapping. It marshals to a JSON
// object whose key order is the slice order, which is how the sentinel
// source stays last after sorting.
type SourceGroups []SourceGroup

// DeviceGroup holds one device's source groups.
type DeviceGroup struct {
	Slug    string
	Sources SourceGroups
}

// DeviceGroups is an ordered device-to-sources mapping with the same
// order-preserving JSON behavior as SourceGroups.
type DeviceGroups []DeviceGroup

// Get returns the rows for a source name.
func (g SourceGroups) Get(name string) ([]ArchiveRow, bool) {
	for _, source := range g {
		if source.Name == name {
			return source.Rows, true
		}
	}
	return nil, false
}

// Get returns the source groups for a device slug.
func (g DeviceGroups) Get(slug string) (SourceGroups, bool) {
	for _, device := range g {
		if device.Slug == slug {
			return device.Sources, true
		}
	}
	return nil, false
}

// Add appends row under the given device and source, creating either on
// first sight so the slice order records first appearance.
func (g *DeviceGroups) Add(slug, source string, row ArchiveRow) {
	for i := range *g {
		if (*g)[i].Slug == slug {
			(*g)[i].Sources.add(source, row)
			return
		}
	}
	*g = append(*g, DeviceGroup{
		Slug:    slug,
		Sources: SourceGroups{{Name: source, Rows: []ArchiveRow{row}}},
	})
}

func (g *SourceGroups) add(name string, row ArchiveRow) {
	for i := range *g {
		if (*g)[i].Name == name {
			(*g)[i].Rows = append((*g)[i].Rows, row)
			return
		}
	}
	*g = append(*g, SourceGroup{Name: name, Rows: []ArchiveRow{row}})
}

func (g SourceGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, source := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrderedEntry(&buf, source.Name, source.Rows); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *SourceGroups) UnmarshalJSON(data []byte) error {
	out := SourceGroups{}
	err := walkOrderedObject(data, func(key string, dec *json.Decoder) error {
		var rows []ArchiveRow
		if err := dec.Decode(&rows); err != nil {
			return err
		}
		out = append(out, SourceGroup{Name: key, Rows: rows})
		return nil
	})
	if err != nil {
		return err
	}
	*g = out
	return nil
}

func (g DeviceGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, device := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeOrderedEntry(&buf, device.Slug, device.Sources); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *DeviceGroups) UnmarshalJSON(data []byte) error {
	out := DeviceGroups{}
	err := walkOrderedObject(data, func(key string, dec *json.Decoder) error {
		var sources SourceGroups
		if err := dec.Decode(&sources); err != nil {
			return err
		}
		out = append(out, DeviceGroup{Slug: key, Sources: sources})
		return nil
	})
	if err != nil {
		return err
	}
	*g = out
	return nil
}

// writeOrderedEntry emits one `"key":value` pair. Encoding goes through a
// json.Encoder with HTML escaping off so download URLs survive verbatim.
func writeOrderedEntry(buf *bytes.Buffer, key string, value any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	buf.WriteByte(':')
	if err := enc.Encode(value); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// walkOrderedObject decodes a JSON object, handing each key and the
// positioned decoder to visit in document order.
func walkOrderedObject(data []byte, visit func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", keyTok)
		}
		if err := visit(key, dec); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
