package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// Writer provides streaming XMLTV file writing. Channels must be written
// before programmes.
type Writer struct {
	w             io.Writer
	loc           *time.Location
	headerWritten bool
	channelsDone  bool
}

// NewWriter creates a new XMLTV writer. Programme start times are formatted
// in loc; nil means the process-local zone.
func NewWriter(w io.Writer, loc *time.Location) *Writer {
	if loc == nil {
		loc = time.Local
	}
	return &Writer{w: w, loc: loc}
}

// WriteDocument writes a complete document and the closing footer.
func (w *Writer) WriteDocument(doc *Document) error {
	for i := range doc.Channels {
		if err := w.WriteChannel(&doc.Channels[i]); err != nil {
			return err
		}
	}
	for i := range doc.Programmes {
		if err := w.WriteProgramme(&doc.Programmes[i]); err != nil {
			return err
		}
	}
	return w.WriteFooter()
}

// WriteHeader writes the XML declaration and opens the tv element.
func (w *Writer) WriteHeader() error {
	if w.headerWritten {
		return nil
	}
	_, err := fmt.Fprintln(w.w, `<?xml version="1.0" encoding="UTF-8"?>`)
	if err != nil {
		return fmt.Errorf("writing XML declaration: %w", err)
	}
	_, err = fmt.Fprintln(w.w, `<tv generator-info-name="locastarr" generator-info-url="https://github.com/jmylchreest/locastarr">`)
	if err != nil {
		return fmt.Errorf("writing tv element: %w", err)
	}
	w.headerWritten = true
	return nil
}

// WriteChannel writes a channel definition.
func (w *Writer) WriteChannel(ch *Channel) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if w.channelsDone {
		return fmt.Errorf("channels must be written before programmes")
	}

	if _, err := fmt.Fprintf(w.w, "  <channel id=\"%s\">\n", xmlEscape(ch.ID)); err != nil {
		return fmt.Errorf("writing channel start: %w", err)
	}
	for _, name := range ch.DisplayNames {
		if _, err := fmt.Fprintf(w.w, "    <display-name>%s</display-name>\n", xmlEscape(name)); err != nil {
			return err
		}
	}
	if ch.Icon != "" {
		if _, err := fmt.Fprintf(w.w, "    <icon src=\"%s\"/>\n", xmlEscape(ch.Icon)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w.w, "  </channel>")
	return err
}

// WriteProgramme writes a programme entry. Optional fields that are nil are
// omitted entirely.
func (w *Writer) WriteProgramme(prog *Programme) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.channelsDone = true

	start := prog.Start.In(w.loc).Format("20060102150405 MST")
	if _, err := fmt.Fprintf(w.w, "  <programme start=\"%s\" channel=\"%s\">\n",
		start, xmlEscape(prog.Channel)); err != nil {
		return fmt.Errorf("writing programme start: %w", err)
	}

	if _, err := fmt.Fprintf(w.w, "    <title>%s</title>\n", xmlEscape(prog.Title)); err != nil {
		return err
	}
	if prog.SubTitle != nil {
		if _, err := fmt.Fprintf(w.w, "    <sub-title>%s</sub-title>\n", xmlEscape(*prog.SubTitle)); err != nil {
			return err
		}
	}
	if prog.Description != nil {
		if _, err := fmt.Fprintf(w.w, "    <desc>%s</desc>\n", xmlEscape(*prog.Description)); err != nil {
			return err
		}
	}
	if prog.Credits != nil {
		if err := w.writeCredits(prog.Credits); err != nil {
			return err
		}
	}
	if prog.Date != nil {
		if _, err := fmt.Fprintf(w.w, "    <date>%s</date>\n", xmlEscape(*prog.Date)); err != nil {
			return err
		}
	}
	for _, category := range prog.Categories {
		if _, err := fmt.Fprintf(w.w, "    <category>%s</category>\n", xmlEscape(category)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w.w, "    <length units=\"seconds\">%d</length>\n", prog.LengthSeconds); err != nil {
		return err
	}
	if prog.EpisodeNum != nil {
		if _, err := fmt.Fprintf(w.w, "    <episode-num system=\"common\">%s</episode-num>\n", xmlEscape(*prog.EpisodeNum)); err != nil {
			return err
		}
	}
	if prog.IsNew {
		if _, err := fmt.Fprintln(w.w, "    <new/>"); err != nil {
			return err
		}
	}
	if prog.Rating != "" {
		if _, err := fmt.Fprintf(w.w, "    <rating><value>%s</value></rating>\n", xmlEscape(prog.Rating)); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w.w, "  </programme>")
	return err
}

// writeCredits writes the credits block, directors before actors per the
// XMLTV DTD ordering.
func (w *Writer) writeCredits(credits *Credits) error {
	if _, err := fmt.Fprintln(w.w, "    <credits>"); err != nil {
		return err
	}
	for _, director := range credits.Directors {
		if _, err := fmt.Fprintf(w.w, "      <director>%s</director>\n", xmlEscape(director)); err != nil {
			return err
		}
	}
	for _, actor := range credits.Actors {
		if _, err := fmt.Fprintf(w.w, "      <actor>%s</actor>\n", xmlEscape(actor)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w.w, "    </credits>")
	return err
}

// WriteFooter closes the tv element.
func (w *Writer) WriteFooter() error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.w, `</tv>`)
	return err
}

// xmlEscape escapes special XML characters.
func xmlEscape(s string) string {
	var buf []byte
	_ = xml.EscapeText((*xmlEscapeWriter)(&buf), []byte(s))
	return string(buf)
}

// xmlEscapeWriter is a helper for xml.EscapeText.
type xmlEscapeWriter []byte

func (w *xmlEscapeWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
