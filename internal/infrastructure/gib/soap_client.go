package gib

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhoicas/efatura-gateway/internal/domain"
	"github.com/jhoicas/efatura-gateway/pkg/config"
	pkggib "github.com/jhoicas/efatura-gateway/pkg/gib"
	"github.com/jhoicas/efatura-gateway/pkg/logger"
)

const (
	soapNS = "http://schemas.xmlsoap.org/soap/envelope/"
	wsseNS = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"

	// Responses are capped; the backends occasionally echo entire documents
	// back inside error text.
	maxResponseBytes = 1 << 20
)

// ── SOAP envelope structures ──────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"s:Envelope"`
	XmlnsS  string     `xml:"xmlns:s,attr"`
	Header  soapHeader `xml:"s:Header"`
	Body    soapBody   `xml:"s:Body"`
}

// soapHeader optionally carries the wsse security block the e-Arşiv document
// service expects on every envelope.
type soapHeader struct {
	Security *wsseSecurity
}

func (h soapHeader) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Header"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if h.Security != nil {
		if err := e.Encode(h.Security); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}

type wsseSecurity struct {
	XMLName   xml.Name          `xml:"wsse:Security"`
	XmlnsWsse string            `xml:"xmlns:wsse,attr"`
	Token     wsseUsernameToken `xml:"wsse:UsernameToken"`
}

type wsseUsernameToken struct {
	Username string `xml:"wsse:Username"`
	Password string `xml:"wsse:Password"`
}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "s:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// ── Operation bodies ──────────────────────────────────────────────────────────

type loginBody struct {
	XMLName  xml.Name `xml:"login"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

type sendDocumentBody struct {
	XMLName        xml.Name `xml:"sendDocument"`
	VKN            string   `xml:"vkn"`
	DocumentType   string   `xml:"documentType"`
	DocumentNumber string   `xml:"documentNo"`
	BinaryData     string   `xml:"binaryData"` // canonical UBL, Base64
	Hash           string   `xml:"hash"`       // content fingerprint
	ERPCode        string   `xml:"erpCode"`    // integrator code
}

type getStatusBody struct {
	XMLName        xml.Name `xml:"getStatus"`
	VKN            string   `xml:"vkn"`
	DocumentType   string   `xml:"documentType"`
	DocumentNumber string   `xml:"documentNo"`
	ERPCode        string   `xml:"erpCode"`
}

// ── Client ────────────────────────────────────────────────────────────────────

// Client posts envelopes to the three GIB endpoint families: the login
// endpoint, the e-Fatura connector and the e-Arşiv document service. It
// performs no retries and no response interpretation beyond the login
// handshake; raw bodies go to the ResponseInterpreter upstream.
type Client struct {
	cfg        config.GIBConfig
	httpClient *http.Client
	interp     *ResponseInterpreter
	log        *logger.Logger
}

// NewClient builds the wire client. Every call carries the configured
// timeout; the backends routinely take several seconds to answer.
func NewClient(cfg config.GIBConfig, log *logger.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		interp:     NewResponseInterpreter(),
		log:        log,
	}
}

// Login implements LoginClient with the service-appropriate handshake.
// e-Fatura logs in against the login endpoint and keeps the session cookie;
// e-Arşiv also attempts the login call but its operative credential is the
// username/password pair embedded on every envelope, so a cookie is kept
// only if the service volunteers one.
func (c *Client) Login(ctx context.Context, service pkggib.Service) (*Session, error) {
	env := soapEnvelope{
		XmlnsS: soapNS,
		Body: soapBody{Content: &loginBody{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}},
	}

	raw, cookie, err := c.post(ctx, c.cfg.LoginURL, "login", env, "")
	if err != nil {
		if service == pkggib.ServiceEArchive {
			// The archive track can authenticate per call; a login transport
			// hiccup does not block it.
			c.log.Warn().Err(err).Msg("archive login unreachable, continuing with embedded credentials")
			return &Session{Username: c.cfg.Username, Password: c.cfg.Password}, nil
		}
		return nil, err
	}

	parsed := c.interp.Interpret(raw)
	if parsed.Fault.Present {
		return nil, fmt.Errorf("%w: %s", domain.ErrAuthentication, parsed.Fault.Value)
	}
	if cookie == "" {
		cookie = sessionIDFromBody(raw)
	}

	sess := &Session{Cookie: cookie}
	if service == pkggib.ServiceEArchive {
		sess.Username = c.cfg.Username
		sess.Password = c.cfg.Password
	}
	if !sess.Usable() {
		return nil, fmt.Errorf("%w: login returned neither cookie nor session id", domain.ErrAuthentication)
	}
	return sess, nil
}

// SendDocument posts the "send document" operation and returns the raw
// response body. Transport failures are errors; everything the backend
// actually said, however malformed, is returned as bytes.
func (c *Client) SendDocument(ctx context.Context, sess *Session, req SubmitRequest) ([]byte, error) {
	env := soapEnvelope{
		XmlnsS: soapNS,
		Header: headerFor(sess),
		Body: soapBody{Content: &sendDocumentBody{
			VKN:            req.VKN,
			DocumentType:   req.DocumentType,
			DocumentNumber: req.DocumentNumber,
			BinaryData:     req.ContentB64,
			Hash:           req.Fingerprint,
			ERPCode:        req.IntegratorCode,
		}},
	}
	raw, _, err := c.post(ctx, c.endpointFor(sess.Service), "sendDocument", env, sess.Cookie)
	return raw, err
}

// GetStatus posts the status-query operation and returns the raw response.
func (c *Client) GetStatus(ctx context.Context, sess *Session, req StatusRequest) ([]byte, error) {
	env := soapEnvelope{
		XmlnsS: soapNS,
		Header: headerFor(sess),
		Body: soapBody{Content: &getStatusBody{
			VKN:            req.VKN,
			DocumentType:   req.DocumentType,
			DocumentNumber: req.DocumentNumber,
			ERPCode:        req.IntegratorCode,
		}},
	}
	raw, _, err := c.post(ctx, c.endpointFor(sess.Service), "getStatus", env, sess.Cookie)
	return raw, err
}

func (c *Client) endpointFor(service pkggib.Service) string {
	if service == pkggib.ServiceEArchive {
		return c.cfg.ArchiveURL
	}
	return c.cfg.ConnectorURL
}

// headerFor embeds the wsse credential block for archive sessions; connector
// sessions authenticate with the cookie alone.
func headerFor(sess *Session) soapHeader {
	if sess == nil || sess.Username == "" {
		return soapHeader{}
	}
	return soapHeader{Security: &wsseSecurity{
		XmlnsWsse: wsseNS,
		Token: wsseUsernameToken{
			Username: sess.Username,
			Password: sess.Password,
		},
	}}
}

// post serializes the envelope and performs one HTTP round trip. The second
// return value is the session cookie the server set, if any.
func (c *Client) post(ctx context.Context, url, action string, env soapEnvelope, cookie string) ([]byte, string, error) {
	payload, err := xml.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("gib: serialize envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("gib: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("%w: %v", domain.ErrTransport, ctx.Err())
		}
		return nil, "", fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", fmt.Errorf("%w: read response: %v", domain.ErrTransport, err)
	}

	var setCookie string
	if sc := resp.Cookies(); len(sc) > 0 {
		setCookie = sc[0].Name + "=" + sc[0].Value
	}

	c.log.Debug().
		Str("url", url).
		Str("action", action).
		Int("status", resp.StatusCode).
		Int("bytes", len(rawBody)).
		Msg("GIB round trip")

	return rawBody, setCookie, nil
}

// sessionIDFromBody digs a session identifier out of the login response body
// for backends that return it as a field instead of a Set-Cookie header.
func sessionIDFromBody(raw []byte) string {
	p := parseForLeaf(raw, []string{"sessionId", "jsessionid", "cookie"})
	if p == "" {
		return ""
	}
	return "JSESSIONID=" + p
}
