package server

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html/template"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/greut/dzi/dzi"
)

// error messages
var unknownError = "no such image: %#v"
var descriptorError = "the descriptor of %#v cannot be read: %v"
var redirectError = "%#v is a link, not an image"

// maximum size of an uploaded descriptor
const maxUpload = 1 << 20

// defaultViewer is where a gallery card leads.
const defaultViewer = "openseadragon"

// template functions
var fns = template.FuncMap{
	"plus1": func(x int) int {
		return x + 1
	},
	"href": func(r dzi.Record) string {
		if r.Redirect != "" {
			return r.Redirect
		}
		return fmt.Sprintf("/%s/%s.html", url.PathEscape(r.ID), defaultViewer)
	},
}

// NewGallery indexes the configured records.
func NewGallery(config *Config) (*dzi.Gallery, error) {
	return dzi.NewGallery(config.Gallery)
}

// IndexHandler shows the gallery grid.
func IndexHandler(w http.ResponseWriter, r *http.Request) {
	config := configFrom(r.Context())
	gallery := galleryFrom(r.Context())

	p := struct {
		Records []dzi.Record
	}{}
	if gallery != nil {
		p.Records = gallery.Records()
	}

	tpl := filepath.Join(config.Templates, "index.html")
	t, err := template.New("index.html").Funcs(fns).ParseFiles(tpl)
	if err != nil {
		log.Printf("Cannot load template %#v: %v", tpl, err)
		http.Error(w, "Cannot load template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t.Execute(w, p)
}

// RedirectHandler follows a gallery card: to the external link of the
// record, or to its viewer.
func RedirectHandler(w http.ResponseWriter, r *http.Request) {
	record, err := lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if record.Redirect != "" {
		http.Redirect(w, r, record.Redirect, http.StatusSeeOther)
		return
	}

	location := fmt.Sprintf("%s/%s/%s.html", baseURL(r), url.PathEscape(record.ID), defaultViewer)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// InfoHandler responds with the descriptor and the pyramid of an image.
func InfoHandler(w http.ResponseWriter, r *http.Request) {
	record, desc, modTime, err := openRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	config := configFrom(r.Context())
	base := baseURL(r)

	p := Info{
		ID:          record.ID,
		Title:       record.Title,
		Description: record.Description,
		Descriptor:  fmt.Sprintf("%s/%s.dzi", base, url.PathEscape(record.ID)),
		TilesURL:    fmt.Sprintf("%s/%s_files/", base, url.PathEscape(record.ID)),
		Image:       desc,
		Levels:      desc.Levels(),
		Viewer:      config.Viewer.Normalize(),
	}

	buffer, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		http.Error(w, "Cannot create info", http.StatusInternalServerError)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/json")
	setCacheHeaders(w, r, config)
	http.ServeContent(w, r, "info.json", modTime, bytes.NewReader(buffer))
}

// DescriptorHandler serves the descriptor as Deep Zoom XML, whatever the
// format of the source file.
func DescriptorHandler(w http.ResponseWriter, r *http.Request) {
	record, desc, modTime, err := openRecord(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	buffer, err := xml.Marshal(desc)
	if err != nil {
		http.Error(w, "Cannot create descriptor", http.StatusInternalServerError)
		return
	}
	buffer = append([]byte(xml.Header), buffer...)

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	setCacheHeaders(w, r, configFrom(r.Context()))
	http.ServeContent(w, r, record.ID+".dzi", modTime, bytes.NewReader(buffer))
}

// ViewerHandler responds with the existing templates.
func ViewerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	viewer := strings.Replace(vars["viewer"], "..", "", -1) + ".html"

	record, err := lookup(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if record.Redirect != "" {
		http.Redirect(w, r, record.Redirect, http.StatusSeeOther)
		return
	}

	config := configFrom(r.Context())
	base := baseURL(r)

	p := &struct {
		Record     dzi.Record
		Info       string
		Descriptor string
		Viewer     dzi.Options
	}{
		Record:     record,
		Info:       fmt.Sprintf("%s/%s/info.json", base, url.PathEscape(record.ID)),
		Descriptor: fmt.Sprintf("%s/%s.dzi", base, url.PathEscape(record.ID)),
		Viewer:     config.Viewer.Normalize(),
	}

	tpl := filepath.Join(config.Templates, "viewer", viewer)
	t, err := template.ParseFiles(tpl)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t.Execute(w, p)
}

// InspectHandler reports the tiling parameters of an uploaded descriptor,
// sent either as the "file" field of a form or as the raw body.
func InspectHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)

	name := r.URL.Query().Get("name")
	var payload []byte
	var err error

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			http.Error(w, fmt.Sprintf("a \"file\" field was expected: %v", ferr), http.StatusBadRequest)
			return
		}
		defer file.Close()
		if name == "" {
			name = header.Filename
		}
		payload, err = ioutil.ReadAll(file)
	} else {
		payload, err = ioutil.ReadAll(r.Body)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if name == "" {
		name = "upload.dzi"
	}

	report, err := dzi.Inspect(name, payload)
	if err != nil {
		debug("Rejected upload %#v: %v", name, err)
		writeParseError(w, err)
		return
	}

	writeJSON(w, report)
}

// lookup finds the record named by the id route variable.
func lookup(r *http.Request) (dzi.Record, error) {
	id, err := url.PathUnescape(mux.Vars(r)["id"])
	if err != nil {
		log.Printf("Identifier is frob %#v", id)
		return dzi.Record{}, HTTPError{http.StatusNotFound, err.Error()}
	}

	gallery := galleryFrom(r.Context())
	if gallery == nil {
		return dzi.Record{}, HTTPError{http.StatusNotFound, fmt.Sprintf(unknownError, id)}
	}
	record, ok := gallery.Lookup(id)
	if !ok {
		return dzi.Record{}, HTTPError{http.StatusNotFound, fmt.Sprintf(unknownError, id)}
	}
	return record, nil
}

// openRecord finds the record and parses its descriptor.
func openRecord(r *http.Request) (dzi.Record, *dzi.Descriptor, time.Time, error) {
	record, err := lookup(r)
	if err != nil {
		return record, nil, time.Time{}, err
	}
	if record.Redirect != "" {
		return record, nil, time.Time{}, HTTPError{http.StatusNotFound, fmt.Sprintf(redirectError, record.ID)}
	}

	desc, modTime, err := openDescriptor(r.Context(), configFrom(r.Context()), record)
	return record, desc, modTime, err
}

// openDescriptor reads and parses the descriptor file of a record.
func openDescriptor(ctx context.Context, config *Config, record dzi.Record) (*dzi.Descriptor, time.Time, error) {
	file, err := readFile(ctx, config.Images, record.Source, groupFrom(ctx, "descriptors"))
	if err != nil {
		return nil, time.Time{}, err
	}

	desc, err := dzi.Parse(file.GetBuffer())
	if err != nil {
		message := fmt.Sprintf(descriptorError, record.Source, err)
		return nil, time.Time{}, HTTPError{http.StatusInternalServerError, message}
	}
	return desc, file.Time(), nil
}

// baseURL rebuilds the public address of the server, proxies included.
func baseURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if r.Header.Get("X-Forwarded-Proto") != "" {
		scheme = r.Header.Get("X-Forwarded-Proto")
	}

	host := r.Host
	if r.Header.Get("X-Forwarded-Host") != "" {
		host = r.Header.Get("X-Forwarded-Host")
	}

	return fmt.Sprintf("%s://%s", scheme, host)
}

func setCacheHeaders(w http.ResponseWriter, r *http.Request, config *Config) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	header.Set("ETag", getETag(r.URL.String()))
	header.Set("Cache-Control", fmt.Sprintf("max-age=%v, public", config.Cache.HTTP))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug("Cannot encode %T: %v", v, err)
	}
}

func getETag(str string) string {
	return fmt.Sprintf("\"%x\"", sha1.Sum([]byte(str)))
}
