package export

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/internal/validation"
)

// MaxImportBytes bounds the uncompressed size Read accepts.
const MaxImportBytes = 32 << 20

// xzMagic starts every xz stream.
var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

type document struct {
	XMLName   xml.Name    `xml:"lumina"`
	Version   int         `xml:"version,attr"`
	Exported  string      `xml:"exported,attr,omitempty"`
	History   []xmlStudy  `xml:"history>study"`
	Favorites []xmlStudy  `xml:"favorites>study"`
	Prayers   []xmlPrayer `xml:"prayers>prayer"`
}

type xmlStudy struct {
	Timestamp                int64          `xml:"timestamp,attr,omitempty"`
	VerseReference           string         `xml:"verseReference,omitempty"`
	KJVText                  string         `xml:"kjvText,omitempty"`
	SimplifiedText           string         `xml:"simplifiedText,omitempty"`
	OriginalLanguageText     string         `xml:"originalLanguageText,omitempty"`
	OriginalLanguageAnalysis string         `xml:"originalLanguageAnalysis,omitempty"`
	Explanation              string         `xml:"explanation"`
	HistoricalContext        string         `xml:"historicalContext"`
	KeyMeaning               string         `xml:"keyMeaning"`
	PracticalApplication     string         `xml:"practicalApplication"`
	Comparison               *xmlComparison `xml:"comparison,omitempty"`
	RelatedVerses            []xmlVerse     `xml:"relatedVerses>verse"`
	SimilarVerses            []xmlVerse     `xml:"similarVerses>verse"`
}

type xmlComparison struct {
	SecondReference string `xml:"secondReference,attr"`
	Similarities    string `xml:"similarities"`
	Differences     string `xml:"differences"`
	Synthesis       string `xml:"synthesis"`
}

type xmlVerse struct {
	Reference string `xml:"reference,attr"`
	Context   string `xml:",chardata"`
}

type xmlPrayer struct {
	ID          string `xml:"id,attr"`
	Timestamp   int64  `xml:"timestamp,attr"`
	Character   string `xml:"character"`
	Theme       string `xml:"theme,omitempty"`
	Scenario    string `xml:"scenario"`
	Text        string `xml:"text"`
	Affirmation string `xml:"affirmation"`
}

// Write encodes lib as an indented <lumina> document stamped with exported.
func Write(w io.Writer, lib *Library, exported time.Time) error {
	doc := document{Version: FormatVersion}
	if !exported.IsZero() {
		doc.Exported = exported.UTC().Format(time.RFC3339)
	}
	for _, s := range lib.History {
		doc.History = append(doc.History, toXMLStudy(s))
	}
	for _, s := range lib.Favorites {
		doc.Favorites = append(doc.Favorites, toXMLStudy(s))
	}
	for _, p := range lib.Prayers {
		doc.Prayers = append(doc.Prayers, xmlPrayer{
			ID:          p.ID,
			Timestamp:   p.Timestamp,
			Character:   p.Character,
			Theme:       p.Theme,
			Scenario:    p.Scenario,
			Text:        p.Content.Text,
			Affirmation: p.Content.Affirmation,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode library: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXMLStudy(s study.Study) xmlStudy {
	x := xmlStudy{
		Timestamp:                s.Timestamp,
		VerseReference:           s.VerseReference,
		KJVText:                  s.KJVText,
		SimplifiedText:           s.SimplifiedText,
		OriginalLanguageText:     s.OriginalLanguageText,
		OriginalLanguageAnalysis: s.OriginalLanguageAnalysis,
		Explanation:              s.Explanation,
		HistoricalContext:        s.HistoricalContext,
		KeyMeaning:               s.KeyMeaning,
		PracticalApplication:     s.PracticalApplication,
		RelatedVerses:            toXMLVerses(s.RelatedVerses),
		SimilarVerses:            toXMLVerses(s.SimilarVerses),
	}
	if c := s.Comparison; c != nil {
		x.Comparison = &xmlComparison{
			SecondReference: c.SecondReference,
			Similarities:    c.Similarities,
			Differences:     c.Differences,
			Synthesis:       c.Synthesis,
		}
	}
	return x
}

func toXMLVerses(links []study.VerseLink) []xmlVerse {
	out := make([]xmlVerse, len(links))
	for i, l := range links {
		out[i] = xmlVerse{Reference: l.Reference, Context: l.Context}
	}
	return out
}

var (
	rootExpr      = xpath.MustCompile("/lumina")
	historyExpr   = xpath.MustCompile("/lumina/history/study")
	favoritesExpr = xpath.MustCompile("/lumina/favorites/study")
	prayersExpr   = xpath.MustCompile("/lumina/prayers/prayer")
	relatedExpr   = xpath.MustCompile("relatedVerses/verse")
	similarExpr   = xpath.MustCompile("similarVerses/verse")
)

// Read decodes a document produced by Write. xz-compressed input is
// detected by its magic bytes and decompressed transparently.
func Read(r io.Reader) (*Library, error) {
	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, _ := br.Peek(len(xzMagic)); bytes.Equal(magic, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, &lerrors.ParseError{Format: "xz", Message: err.Error(), Err: err}
		}
		src = xr
	}

	data, err := io.ReadAll(io.LimitReader(src, MaxImportBytes+1))
	if err != nil {
		return nil, &lerrors.ParseError{Format: "xz", Message: err.Error(), Err: err}
	}
	if len(data) > MaxImportBytes {
		return nil, lerrors.NewParse("XML", "", fmt.Sprintf("larger than %d bytes", MaxImportBytes))
	}

	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &lerrors.ParseError{Format: "XML", Message: err.Error(), Err: err}
	}
	root := xmlquery.QuerySelector(doc, rootExpr)
	if root == nil {
		return nil, lerrors.NewParse("XML", "", "missing <lumina> root element")
	}
	if v := root.SelectAttr("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n > FormatVersion {
			return nil, lerrors.NewParse("XML", "", "unsupported version "+strconv.Quote(v))
		}
	}

	lib := &Library{}
	for _, n := range xmlquery.QuerySelectorAll(doc, historyExpr) {
		s, err := readStudy(n)
		if err != nil {
			return nil, err
		}
		lib.History = append(lib.History, s)
	}
	for _, n := range xmlquery.QuerySelectorAll(doc, favoritesExpr) {
		s, err := readStudy(n)
		if err != nil {
			return nil, err
		}
		lib.Favorites = append(lib.Favorites, s)
	}
	for _, n := range xmlquery.QuerySelectorAll(doc, prayersExpr) {
		ts, err := timestampAttr(n)
		if err != nil {
			return nil, err
		}
		lib.Prayers = append(lib.Prayers, study.Prayer{
			ID:        n.SelectAttr("id"),
			Timestamp: ts,
			Character: childText(n, "character"),
			Theme:     childText(n, "theme"),
			Scenario:  childText(n, "scenario"),
			Content: study.PrayerContent{
				Text:        childText(n, "text"),
				Affirmation: childText(n, "affirmation"),
			},
		})
	}
	return lib, nil
}

func readStudy(n *xmlquery.Node) (study.Study, error) {
	ts, err := timestampAttr(n)
	if err != nil {
		return study.Study{}, err
	}
	s := study.Study{
		Timestamp:                ts,
		VerseReference:           childText(n, "verseReference"),
		KJVText:                  childText(n, "kjvText"),
		SimplifiedText:           childText(n, "simplifiedText"),
		OriginalLanguageText:     childText(n, "originalLanguageText"),
		OriginalLanguageAnalysis: childText(n, "originalLanguageAnalysis"),
		Explanation:              childText(n, "explanation"),
		HistoricalContext:        childText(n, "historicalContext"),
		KeyMeaning:               childText(n, "keyMeaning"),
		PracticalApplication:     childText(n, "practicalApplication"),
		RelatedVerses:            readVerses(n, relatedExpr),
		SimilarVerses:            readVerses(n, similarExpr),
	}
	if c := n.SelectElement("comparison"); c != nil {
		s.Comparison = &study.Comparison{
			SecondReference: c.SelectAttr("secondReference"),
			Similarities:    childText(c, "similarities"),
			Differences:     childText(c, "differences"),
			Synthesis:       childText(c, "synthesis"),
		}
	}
	return s, nil
}

func readVerses(n *xmlquery.Node, expr *xpath.Expr) []study.VerseLink {
	out := []study.VerseLink{}
	for _, v := range xmlquery.QuerySelectorAll(n, expr) {
		out = append(out, study.VerseLink{Reference: v.SelectAttr("reference"), Context: v.InnerText()})
	}
	return out
}

func childText(n *xmlquery.Node, name string) string {
	if c := n.SelectElement(name); c != nil {
		return c.InnerText()
	}
	return ""
}

func timestampAttr(n *xmlquery.Node) (int64, error) {
	v := n.SelectAttr("timestamp")
	if v == "" {
		return 0, nil
	}
	ts, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &lerrors.ParseError{Format: "XML", Path: n.Data, Message: "invalid timestamp " + strconv.Quote(v), Err: err}
	}
	return ts, nil
}

// WriteFile writes lib to path, xz-compressed when path ends in ".xz".
func WriteFile(path string, lib *Library, exported time.Time) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return lerrors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = lerrors.NewIO("close", path, cerr)
		}
	}()

	if !strings.HasSuffix(path, ".xz") {
		return Write(f, lib, exported)
	}
	xw, err := xz.NewWriter(f)
	if err != nil {
		return fmt.Errorf("create xz writer: %w", err)
	}
	if err := Write(xw, lib, exported); err != nil {
		xw.Close()
		return err
	}
	return xw.Close()
}

// ReadFile reads a library exported by WriteFile. The file's content must
// match its extension.
func ReadFile(path string) (*Library, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, lerrors.NewIO("open", path, err)
	}
	defer f.Close()

	if _, err := validation.ValidateLibraryFile(f, path); err != nil {
		return nil, &lerrors.ValidationError{Field: "path", Message: err.Error(), Err: err}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, lerrors.NewIO("seek", path, err)
	}

	lib, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return lib, nil
}
