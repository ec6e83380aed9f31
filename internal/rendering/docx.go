package rendering

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strings"

	"github.com/jonathan/cv-tailor/internal/types"
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// paragraph styles understood by Word without a styles part
type runStyle int

const (
	styleNormal runStyle = iota
	styleBold
	styleItalic
	styleBullet
	styleHeading
	styleTitle
)

type docxWriter struct {
	body strings.Builder
}

func (w *docxWriter) paragraph(text string, style runStyle) {
	if style == styleBullet {
		text = "• " + text
	}
	w.body.WriteString("<w:p>")
	switch style {
	case styleTitle:
		w.body.WriteString(`<w:pPr><w:jc w:val="center"/></w:pPr>`)
	case styleHeading:
		w.body.WriteString(`<w:pPr><w:spacing w:before="240" w:after="60"/></w:pPr>`)
	case styleBullet:
		w.body.WriteString(`<w:pPr><w:ind w:left="360"/></w:pPr>`)
	}
	w.body.WriteString("<w:r>")
	switch style {
	case styleTitle:
		w.body.WriteString(`<w:rPr><w:b/><w:sz w:val="36"/></w:rPr>`)
	case styleHeading:
		w.body.WriteString(`<w:rPr><w:b/><w:sz w:val="26"/></w:rPr>`)
	case styleBold:
		w.body.WriteString(`<w:rPr><w:b/></w:rPr>`)
	case styleItalic:
		w.body.WriteString(`<w:rPr><w:i/></w:rPr>`)
	}
	w.body.WriteString(`<w:t xml:space="preserve">`)
	_ = xml.EscapeText(&w.body, []byte(text))
	w.body.WriteString("</w:t></w:r></w:p>")
}

func (w *docxWriter) pageBreak() {
	w.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func (w *docxWriter) document() string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		w.body.String() +
		`</w:body></w:document>`
}

// DOCX renders the CV and optional cover letter as a WordprocessingML package
func DOCX(cv types.TailoredCV, letter *types.CoverLetter) ([]byte, error) {
	w := &docxWriter{}

	w.paragraph(cv.Header.Name, styleTitle)
	if cv.Header.Title != "" {
		w.paragraph(cv.Header.Title, styleBold)
	}
	if contact := contactParts(cv.Header); len(contact) > 0 {
		w.paragraph(strings.Join(contact, " | "), styleNormal)
	}

	if cv.Summary != "" {
		w.paragraph("Summary", styleHeading)
		w.paragraph(cv.Summary, styleNormal)
	}

	if len(cv.Experience) > 0 {
		w.paragraph("Experience", styleHeading)
		for _, exp := range cv.Experience {
			w.paragraph(exp.Title, styleBold)
			meta := exp.Company
			if m := experienceMeta(exp); m != "" {
				meta += " | " + m
			}
			w.paragraph(meta, styleItalic)
			for _, b := range exp.Bullets {
				w.paragraph(b.Text, styleBullet)
			}
		}
	}

	if groups := skillGroups(cv.Skills); len(groups) > 0 {
		w.paragraph("Skills", styleHeading)
		for _, g := range groups {
			w.paragraph(g.label+": "+strings.Join(g.skills, ", "), styleNormal)
		}
	}

	if len(cv.Education) > 0 {
		w.paragraph("Education", styleHeading)
		for _, edu := range cv.Education {
			line := degreeLine(edu)
			if edu.Year != "" {
				line += " (" + edu.Year + ")"
			}
			w.paragraph(line, styleBold)
			w.paragraph(edu.Institution, styleNormal)
			for _, h := range edu.Highlights {
				w.paragraph(h, styleBullet)
			}
		}
	}

	if len(cv.Certifications) > 0 {
		w.paragraph("Certifications", styleHeading)
		for _, cert := range cv.Certifications {
			w.paragraph(certificationLine(cert), styleBullet)
		}
	}

	if len(cv.Projects) > 0 {
		w.paragraph("Projects", styleHeading)
		for _, p := range cv.Projects {
			w.paragraph(p.Name, styleBold)
			if p.Description != "" {
				w.paragraph(p.Description, styleNormal)
			}
			if len(p.Technologies) > 0 {
				w.paragraph("Technologies: "+strings.Join(p.Technologies, ", "), styleItalic)
			}
		}
	}

	if paragraphs := letterParagraphs(letter); len(paragraphs) > 0 {
		w.pageBreak()
		w.paragraph("Cover Letter", styleHeading)
		for _, p := range paragraphs {
			w.paragraph(p, styleNormal)
		}
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"word/document.xml", w.document()},
	}
	for _, part := range parts {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, &RenderError{Format: "docx", Message: "failed to create " + part.name, Cause: err}
		}
		if _, err := f.Write([]byte(part.body)); err != nil {
			return nil, &RenderError{Format: "docx", Message: "failed to write " + part.name, Cause: err}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &RenderError{Format: "docx", Message: "failed to finalize archive", Cause: err}
	}
	return buf.Bytes(), nil
}
