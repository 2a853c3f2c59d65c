package gib

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/beevik/etree"
)

// Field is an optional string: Present distinguishes "field absent from the
// response" from "field present but empty", so callers never have to guess
// from a zero value.
type Field struct {
	Value   string
	Present bool
}

func field(v string) Field { return Field{Value: v, Present: true} }

// Or returns the field value, or def when the field is absent.
func (f Field) Or(def string) string {
	if f.Present {
		return f.Value
	}
	return def
}

// ParsedResponse is the interpreter's normalized view of one response body.
type ParsedResponse struct {
	Fault          Field // protocol fault text; set short-circuits the rest
	Status         Field
	ResultCode     Field
	ResultText     Field
	ETTN           Field
	DocumentNumber Field
	DocumentURL    Field
}

// HasStructure reports whether any non-fault field was recognized, the
// "partial structured payload" signal for degraded-success handling.
func (p ParsedResponse) HasStructure() bool {
	return p.Status.Present || p.ResultCode.Present || p.ResultText.Present ||
		p.ETTN.Present || p.DocumentNumber.Present || p.DocumentURL.Present
}

// NotFound reports whether the response says the document is unknown to the
// backend, an expected transient state rather than a failure.
func (p ParsedResponse) NotFound() bool {
	for _, f := range []Field{p.Status, p.ResultText} {
		if !f.Present {
			continue
		}
		t := strings.ToLower(f.Value)
		if strings.Contains(t, "not found") || strings.Contains(t, "bulunamad") {
			return true
		}
	}
	return false
}

// Leaf-name vocabularies. The two services disagree on field names (and the
// connector sometimes nests a JSON object inside a single <return> tag), so
// every alias both services are known to use is probed.
var (
	faultNames      = []string{"Fault", "fault", "Exception", "exception"}
	faultTextNames  = []string{"faultstring", "faultString", "Reason", "message", "Message"}
	statusNames     = []string{"status", "durum", "state", "documentStatus"}
	resultCodeNames = []string{"resultCode", "returnCode", "kod", "code"}
	resultTextNames = []string{"resultText", "resultMsg", "aciklama", "description", "message"}
	ettnNames       = []string{"ettn", "uuid"}
	docNumberNames  = []string{"belgeNo", "docNo", "documentNo", "documentNumber", "faturaNo", "invoiceNumber"}
	urlNames        = []string{"url", "link", "belgeUrl", "documentUrl", "viewUrl"}
)

var (
	ettnPattern = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	urlPattern  = regexp.MustCompile(`https?://[^\s<>"']+`)
)

// ResponseInterpreter extracts structured fields from the deliberately
// heterogeneous response bodies of the GIB backends. It never fails: an
// unparseable body simply yields a response with no fields present (minus
// whatever the pattern fallback can still scrape out).
type ResponseInterpreter struct{}

// NewResponseInterpreter creates the interpreter.
func NewResponseInterpreter() *ResponseInterpreter {
	return &ResponseInterpreter{}
}

// Interpret runs the extraction pipeline in priority order:
//  1. explicit fault/exception block, which short-circuits with the fault text;
//  2. strongly-named leaf elements anywhere in the tree;
//  3. a single <return> element whose text parses as a JSON object;
//  4. best-effort pattern matching over the raw body for an ETTN-shaped
//     token and a URL-shaped token, applied only when stages 2 and 3 found
//     nothing (a structured response never gets fields scraped into it).
func (ri *ResponseInterpreter) Interpret(raw []byte) ParsedResponse {
	var p ParsedResponse

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil || doc.Root() == nil {
		// Not XML at all; the pattern fallback is all we have.
		ri.patternFallback(raw, &p)
		return p
	}
	root := doc.Root()

	// Stage 1: fault block.
	if fault := findFault(root); fault.Present {
		p.Fault = fault
		return p
	}

	// Stage 2: typed leaves by name.
	ri.extractLeaves(root, &p)

	// Stage 3: JSON object nested inside a single <return> tag.
	if ret := findFirstByNames(root, []string{"return"}); ret != nil {
		ri.extractFromJSON(strings.TrimSpace(ret.Text()), &p)
	}

	// Stage 4 runs only when stages 2 and 3 recognized nothing at all. A
	// structured response keeps its absent fields absent; scraping it anyway
	// would promote envelope noise (xmlns URLs, echoed UUIDs) into fields.
	if !p.HasStructure() {
		ri.patternFallback(raw, &p)
	}
	return p
}

func (ri *ResponseInterpreter) extractLeaves(root *etree.Element, p *ParsedResponse) {
	assign := func(dst *Field, names []string) {
		if dst.Present {
			return
		}
		if el := findFirstByNames(root, names); el != nil {
			*dst = field(strings.TrimSpace(el.Text()))
		}
	}
	assign(&p.Status, statusNames)
	assign(&p.ResultCode, resultCodeNames)
	assign(&p.ResultText, resultTextNames)
	assign(&p.ETTN, ettnNames)
	assign(&p.DocumentNumber, docNumberNames)
	assign(&p.DocumentURL, urlNames)
}

// extractFromJSON pulls the same vocabulary out of a JSON object that one of
// the services embeds as the text of its single <return> element. Structured
// parsing failing is not an error; later stages still run.
func (ri *ResponseInterpreter) extractFromJSON(text string, p *ParsedResponse) {
	if text == "" || !strings.HasPrefix(text, "{") {
		return
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return
	}
	lower := make(map[string]string, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			lower[strings.ToLower(k)] = val
		case float64:
			lower[strings.ToLower(k)] = jsonNumber(val)
		}
	}
	assign := func(dst *Field, names []string) {
		if dst.Present {
			return
		}
		for _, n := range names {
			if v, ok := lower[strings.ToLower(n)]; ok {
				*dst = field(strings.TrimSpace(v))
				return
			}
		}
	}
	assign(&p.Status, statusNames)
	assign(&p.ResultCode, resultCodeNames)
	assign(&p.ResultText, resultTextNames)
	assign(&p.ETTN, ettnNames)
	assign(&p.DocumentNumber, docNumberNames)
	assign(&p.DocumentURL, urlNames)
}

func (ri *ResponseInterpreter) patternFallback(raw []byte, p *ParsedResponse) {
	if !p.ETTN.Present {
		if m := ettnPattern.Find(raw); m != nil {
			p.ETTN = field(string(m))
		}
	}
	if !p.DocumentURL.Present {
		if m := urlPattern.Find(raw); m != nil {
			p.DocumentURL = field(string(m))
		}
	}
}

// parseForLeaf returns the text of the first element whose local name
// matches any of names, or "" when the body is not XML or nothing matches.
func parseForLeaf(raw []byte, names []string) string {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil || doc.Root() == nil {
		return ""
	}
	if el := findFirstByNames(doc.Root(), names); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// findFault locates a fault/exception block and its text.
func findFault(root *etree.Element) Field {
	faultEl := findFirstByNames(root, faultNames)
	if faultEl == nil {
		return Field{}
	}
	if textEl := findFirstByNames(faultEl, faultTextNames); textEl != nil {
		return field(strings.TrimSpace(textEl.Text()))
	}
	return field(strings.TrimSpace(faultEl.Text()))
}

// findFirstByNames searches the tree (root included) for the first element
// whose local name matches any of names, ignoring namespace prefixes. The
// layered search mirrors how the backends scatter the same field across
// different nesting depths.
func findFirstByNames(el *etree.Element, names []string) *etree.Element {
	for _, name := range names {
		if found := findByLocalName(el, name); found != nil {
			return found
		}
	}
	return nil
}

func findByLocalName(el *etree.Element, localName string) *etree.Element {
	if strings.EqualFold(localTag(el), localName) {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findByLocalName(child, localName); found != nil {
			return found
		}
	}
	return nil
}

func localTag(el *etree.Element) string {
	tag := el.Tag
	if idx := strings.IndexByte(tag, ':'); idx >= 0 {
		tag = tag[idx+1:]
	}
	return tag
}

func jsonNumber(v float64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
