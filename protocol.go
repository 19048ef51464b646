package euctr

// Protocol section and field names used when repairing truncated card
// titles from a protocol document.
const (
	protocolInfoSection = "A. Protocol Information"
	fullTitleField      = "Full title of the trial"
)

// ProtocolDocument holds one parsed protocol page: a flat summary map plus
// one entry per discovered section, keyed by the section's heading text.
// A section with no body is null.
type ProtocolDocument struct {
	URL      string
	Summary  *Fields
	Sections *Fields
}

// Section returns the named section's field map. The second return is
// false when the section is absent or has no body.
func (d *ProtocolDocument) Section(title string) (*Fields, bool) {
	if d.Sections == nil {
		return nil, false
	}
	v, ok := d.Sections.Get(title)
	if !ok || v.Kind() != KindMap {
		return nil, false
	}
	return v.Fields(), true
}

// SummaryTitle returns the untruncated trial title carried in the protocol
// information section, or "" when the document does not have one.
func (d *ProtocolDocument) SummaryTitle() string {
	section, ok := d.Section(protocolInfoSection)
	if !ok {
		return ""
	}
	v, ok := section.Get(fullTitleField)
	if !ok {
		return ""
	}
	switch v.Kind() {
	case KindString:
		return v.Str()
	case KindList:
		if items := v.Items(); len(items) > 0 && items[0].Kind() == KindString {
			return items[0].Str()
		}
	}
	return ""
}

// MarshalJSON implements json.Marshaler. The document serializes flat:
// the URL and summary first, then one key per section.
func (d *ProtocolDocument) MarshalJSON() ([]byte, error) {
	out := NewFields()
	out.Set("url", String(d.URL))
	if d.Summary != nil {
		out.Set("summary", Map(d.Summary))
	} else {
		out.Set("summary", Map(NewFields()))
	}
	if d.Sections != nil {
		for _, key := range d.Sections.Keys() {
			v, _ := d.Sections.Get(key)
			out.Set(key, v)
		}
	}
	return out.MarshalJSON()
}
