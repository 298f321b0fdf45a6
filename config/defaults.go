package config

import (
	"github.com/ByLCY/sleuthprint/layout"
)

// ApplyDefaults fills every unset option with the values the printed game uses.
func (c *Config) ApplyDefaults() {
	if c.Kind == "" {
		c.Kind = KindCards
	}
	setSize(&c.CardSize, 2.5, 3.5)
	setSize(&c.PageSize, 8.5, 11)
	setSize(&c.FrameSize, 4, 6)
	if c.Margin == nil {
		m := layout.Inches(0.5)
		c.Margin = &m
	}
	if c.DPI == 0 {
		c.DPI = 72
	}
	if c.Title == "" && c.Kind == KindCards {
		c.Title = "CARD"
	}
	if c.DataKey == "" {
		c.DataKey = "items"
	}
	if c.Layout == "" {
		c.Layout = LayoutFull
	}
	if c.QRSizeRatio == 0 {
		c.QRSizeRatio = 0.33
	}
	if c.Sink == "" {
		c.Sink = SinkCanvas
	}
	if c.Kind == KindDocuments {
		if c.ImagePathTemplate == "" {
			c.ImagePathTemplate = "{image}"
		}
		if c.QROverlay && c.QRPathTemplate == "" && c.QRContentTemplate == "" {
			c.QRPathTemplate = "{qr}"
		}
	}
	if c.Fields.Text == "" && c.Fields.Description == "" {
		c.Fields.Text = "text"
	}

	st := &c.Style
	setFloat(&st.TitleSize, 32)
	setFloat(&st.BodySize, 14)
	setFloat(&st.LabelSize, 10)
	setFloat(&st.HeaderSize, 20)
	if st.WrapWidth == 0 {
		st.WrapWidth = 20
	}
	if st.LineHeight.IsZero() {
		st.LineHeight = layout.LineHeightSpec{Kind: layout.LineHeightAbsolute, Len: layout.Points(16)}
	}
	setFloat(&st.Gap, 8)
	setFloat(&st.TitleTop, 10)
	setFloat(&st.BottomMargin, 30)
	setFloat(&st.AttributionOffset, 24)
	if st.AttributionFormat == "" {
		st.AttributionFormat = "— %s —"
	}
	setFloat(&st.ImageHeightRatio, 0.4)
	setFloat(&st.PhotoHeightRatio, 0.25)
	setFloat(&st.QRWidthRatio, 0.6)
	if st.Border == nil {
		on := c.Kind == KindCards
		st.Border = &on
	}

	sec := &c.Sections
	if sec.NameField == "" {
		sec.NameField = "name"
	}
	if sec.EntriesField == "" {
		sec.EntriesField = "examples"
	}
	if sec.LabelField == "" {
		sec.LabelField = "label"
	}
	if sec.MaxEntries == 0 {
		sec.MaxEntries = 2
	}
	if sec.HeaderHeight.IsZero() {
		sec.HeaderHeight = layout.Inches(0.4)
	}
	if sec.QRSize.IsZero() {
		sec.QRSize = layout.Inches(2)
	}

	bk := &c.Book
	if bk.MarginX.IsZero() {
		bk.MarginX = layout.Inches(1)
	}
	if bk.MarginY.IsZero() {
		bk.MarginY = layout.Inches(0.75)
	}
	if bk.ImageMax.IsZero() {
		bk.ImageMax = layout.Inches(2)
	}
	if len(bk.BackMatter) == 0 {
		bk.BackMatter = []string{"Some mysteries are solved in an instant.", "Others haunt us for a century."}
	}
}

func setSize(s *Size, w, h float64) {
	if s.Width.IsZero() {
		s.Width = layout.Inches(w)
	}
	if s.Height.IsZero() {
		s.Height = layout.Inches(h)
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}
