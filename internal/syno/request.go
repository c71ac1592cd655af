package syno

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// Request describes one logical API call independent of any session
// token: the API namespace, protocol version, method verb, and a bag of
// method parameters. The executor attaches _sid at send time.
type Request struct {
	API     string
	Version int
	Method  string

	params url.Values
	upload *Upload
}

// Upload is a raw file part for multipart requests (torrent uploads).
type Upload struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// NewRequest creates a request template for the given API namespace,
// version, and method.
func NewRequest(api string, version int, method string) *Request {
	return &Request{
		API:     api,
		Version: version,
		Method:  method,
		params:  url.Values{},
	}
}

// Set adds a plain string parameter.
func (r *Request) Set(key, value string) *Request {
	r.params.Set(key, value)
	return r
}

// SetInt adds an integer parameter.
func (r *Request) SetInt(key string, value int) *Request {
	r.params.Set(key, strconv.Itoa(value))
	return r
}

// SetBool adds a boolean parameter as the literal "true"/"false".
func (r *Request) SetBool(key string, value bool) *Request {
	r.params.Set(key, strconv.FormatBool(value))
	return r
}

// SetJSON adds a JSON-encoded parameter. The DownloadStation2 API
// expects some string values quoted ("url") and list values as JSON
// arrays (["transfer","detail"]); encoding through json.Marshal
// reproduces both forms exactly.
func (r *Request) SetJSON(key string, value any) *Request {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Only marshalable values (strings, bools, string slices) are
		// ever passed here; an error means a programming mistake.
		panic("syno: unmarshalable request parameter " + key + ": " + err.Error())
	}
	r.params.Set(key, string(encoded))
	return r
}

// Attach adds a file part, switching the request to multipart encoding.
func (r *Request) Attach(u Upload) *Request {
	r.upload = &u
	return r
}

// form resolves the template into wire form values, including the
// session token when one is held. The receiver's own bag is not
// mutated, so a template can be replayed with a fresh token.
func (r *Request) form(sid string) url.Values {
	form := url.Values{}
	form.Set("api", r.API)
	form.Set("version", strconv.Itoa(r.Version))
	form.Set("method", r.Method)
	for key, values := range r.params {
		form[key] = values
	}
	if sid != "" {
		form.Set("_sid", sid)
	}
	return form
}
