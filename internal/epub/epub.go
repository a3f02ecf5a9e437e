// Package epub reads EPUB containers: the zip envelope, the OCF container
// descriptor and the OPF package document. It exposes just what ingestion
// needs — the title, the declared cover and the embedded raster images.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"sort"
	"strings"
)

// MimeType is the declared content type of an EPUB upload.
const MimeType = "application/epub+zip"

// ErrMalformed is returned when the container or its package document cannot
// be parsed.
var ErrMalformed = errors.New("malformed epub archive")

const containerPath = "META-INF/container.xml"

// Resource is one manifest item of the package document.
type Resource struct {
	ID        string
	Path      string // archive path, already resolved against the OPF location
	MediaType string
}

// Document is a parsed EPUB held open for resource reads.
type Document struct {
	files  map[string]*zip.File
	title  string
	images []Resource
	cover  *Resource
}

type ocfContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type opfPackage struct {
	Metadata struct {
		Titles []string `xml:"title"`
		Metas  []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// Open parses an EPUB from a random-access reader.
func Open(r io.ReaderAt, size int64) (*Document, error) {
	archive, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := &Document{files: make(map[string]*zip.File, len(archive.File))}
	for _, file := range archive.File {
		doc.files[file.Name] = file
	}

	var container ocfContainer
	if err := doc.readXML(containerPath, &container); err != nil {
		return nil, err
	}
	if len(container.Rootfiles) == 0 {
		return nil, fmt.Errorf("%w: container declares no rootfile", ErrMalformed)
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg opfPackage
	if err := doc.readXML(opfPath, &pkg); err != nil {
		return nil, err
	}

	for _, title := range pkg.Metadata.Titles {
		if strings.TrimSpace(title) != "" {
			doc.title = strings.TrimSpace(title)
			break
		}
	}

	// EPUB2 cover declaration: <meta name="cover" content="item-id">.
	coverID := ""
	for _, meta := range pkg.Metadata.Metas {
		if meta.Name == "cover" {
			coverID = meta.Content
		}
	}

	base := path.Dir(opfPath)
	for _, item := range pkg.Manifest.Items {
		href, err := url.PathUnescape(item.Href)
		if err != nil {
			href = item.Href
		}
		res := Resource{
			ID:        item.ID,
			Path:      resolveHref(base, href),
			MediaType: item.MediaType,
		}
		if item.MediaType == "image/jpeg" || item.MediaType == "image/png" {
			doc.images = append(doc.images, res)
		}
		// EPUB3 marks the cover on the manifest item itself.
		if strings.Contains(item.Properties, "cover-image") || (coverID != "" && item.ID == coverID) {
			if doc.cover == nil {
				cover := res
				doc.cover = &cover
			}
		}
	}

	// Archive storage order is arbitrary; path order is the page order.
	sort.Slice(doc.images, func(i, j int) bool {
		return doc.images[i].Path < doc.images[j].Path
	})

	return doc, nil
}

// Title returns the package title, reporting whether one was declared.
func (d *Document) Title() (string, bool) {
	return d.title, d.title != ""
}

// Images returns every JPEG and PNG manifest resource in stable
// lexicographic path order. The declared cover, if any, is included.
func (d *Document) Images() []Resource {
	return d.images
}

// Cover returns the declared cover resource, if the package names one.
func (d *Document) Cover() (Resource, bool) {
	if d.cover == nil {
		return Resource{}, false
	}
	return *d.cover, true
}

// Read extracts a resource's bytes from the archive.
func (d *Document) Read(res Resource) ([]byte, error) {
	file, ok := d.files[res.Path]
	if !ok {
		return nil, fmt.Errorf("%w: manifest references missing file %s", ErrMalformed, res.Path)
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (d *Document) readXML(name string, into any) error {
	file, ok := d.files[name]
	if !ok {
		return fmt.Errorf("%w: missing %s", ErrMalformed, name)
	}
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(into); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, name, err)
	}
	return nil
}

func resolveHref(base, href string) string {
	if base == "." || base == "" {
		return path.Clean(href)
	}
	return path.Clean(path.Join(base, href))
}
