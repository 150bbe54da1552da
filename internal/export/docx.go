package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"

	"resumeforensics/internal/types"
)

// DOCX section headings.
const (
	HeadingSummary    = "PROFESSIONAL SUMMARY"
	HeadingExperience = "PROFESSIONAL EXPERIENCE"
	HeadingEducation  = "EDUCATION"
	HeadingSkills     = "CORE SKILLS & TECHNOLOGIES"
	skillSeparator    = " • "
)

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

type run struct {
	text   string
	bold   bool
	italic bool
	size   int // half-points; zero keeps the default
}

type paragraph struct {
	runs        []run
	center      bool
	bullet      bool
	rule        bool // bottom border under section headings
	spaceBefore int  // twentieths of a point
	spaceAfter  int
}

// docWriter accumulates WordprocessingML body content.
type docWriter struct {
	buf bytes.Buffer
}

func (w *docWriter) text(s string) {
	_ = xml.EscapeText(&w.buf, []byte(s))
}

func (w *docWriter) paragraph(p paragraph) {
	w.buf.WriteString("<w:p><w:pPr>")
	if p.rule {
		w.buf.WriteString(`<w:pBdr><w:bottom w:val="single" w:sz="6" w:space="1" w:color="auto"/></w:pBdr>`)
	}
	if p.spaceBefore > 0 || p.spaceAfter > 0 {
		w.buf.WriteString(`<w:spacing w:before="` + strconv.Itoa(p.spaceBefore) + `" w:after="` + strconv.Itoa(p.spaceAfter) + `"/>`)
	}
	if p.bullet {
		w.buf.WriteString(`<w:ind w:left="720" w:hanging="360"/>`)
	}
	if p.center {
		w.buf.WriteString(`<w:jc w:val="center"/>`)
	}
	w.buf.WriteString("</w:pPr>")

	runs := p.runs
	if p.bullet {
		runs = append([]run{{text: "• "}}, runs...)
	}
	for _, r := range runs {
		w.buf.WriteString("<w:r>")
		if r.bold || r.italic || r.size > 0 {
			w.buf.WriteString("<w:rPr>")
			if r.bold {
				w.buf.WriteString("<w:b/>")
			}
			if r.italic {
				w.buf.WriteString("<w:i/>")
			}
			if r.size > 0 {
				w.buf.WriteString(`<w:sz w:val="` + strconv.Itoa(r.size) + `"/>`)
			}
			w.buf.WriteString("</w:rPr>")
		}
		w.buf.WriteString(`<w:t xml:space="preserve">`)
		w.text(r.text)
		w.buf.WriteString("</w:t></w:r>")
	}
	w.buf.WriteString("</w:p>")
}

func (w *docWriter) heading(title string) {
	w.paragraph(paragraph{
		runs:        []run{{text: title, bold: true, size: 24}},
		rule:        true,
		spaceBefore: 240,
		spaceAfter:  120,
	})
}

func (w *docWriter) document() []byte {
	var out bytes.Buffer
	out.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	out.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	out.Write(w.buf.Bytes())
	out.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1080" w:right="1080" w:bottom="1080" w:left="1080" w:header="720" w:footer="720" w:gutter="0"/></w:sectPr>`)
	out.WriteString(`</w:body></w:document>`)
	return out.Bytes()
}

// contactLine joins the contact details present in the extracted data.
func contactLine(ex types.ExtractedData) string {
	parts := make([]string, 0, 2+len(ex.Links))
	for _, p := range append([]string{ex.Contact, ex.Phone}, ex.Links...) {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " | ")
}

// BuildDOCX lays out idealResumeContent as a single-column, ATS-friendly document.
// Every string of the ideal resume, the name and the contact line appear verbatim.
func BuildDOCX(r *types.AnalysisResult) ([]byte, error) {
	ideal := r.IdealResumeContent
	w := &docWriter{}

	w.paragraph(paragraph{center: true, spaceAfter: 80, runs: []run{{text: r.ExtractedData.Name, bold: true, size: 36}}})
	if contact := contactLine(r.ExtractedData); contact != "" {
		w.paragraph(paragraph{center: true, spaceAfter: 200, runs: []run{{text: contact, size: 20}}})
	}

	w.heading(HeadingSummary)
	w.paragraph(paragraph{runs: []run{{text: ideal.Summary}}})

	w.heading(HeadingExperience)
	for _, exp := range ideal.Experience {
		w.paragraph(paragraph{spaceBefore: 160, runs: []run{{text: exp.Company + " | " + exp.Period, bold: true}}})
		w.paragraph(paragraph{runs: []run{{text: exp.Role, bold: true, italic: true}}})
		for _, b := range exp.Bullets {
			w.paragraph(paragraph{bullet: true, runs: []run{{text: b}}})
		}
	}

	w.heading(HeadingEducation)
	for _, edu := range ideal.Education {
		w.paragraph(paragraph{spaceBefore: 120, runs: []run{{text: edu.School + " | " + edu.Year, bold: true}}})
		degree := edu.Degree
		if edu.Honors != "" {
			degree += " (" + edu.Honors + ")"
		}
		w.paragraph(paragraph{runs: []run{{text: degree}}})
	}

	w.heading(HeadingSkills)
	w.paragraph(paragraph{runs: []run{{text: strings.Join(ideal.Skills, skillSeparator)}}})

	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, part := range []struct {
		name string
		data []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(relsXML)},
		{"word/document.xml", w.document()},
	} {
		f, err := zw.Create(part.name)
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(part.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
