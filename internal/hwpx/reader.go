package hwpx

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/hanpama/hwarang/internal/container"
	"github.com/hanpama/hwarang/internal/document"
	"github.com/hanpama/hwarang/internal/hwperr"
)

const (
	mimeType = "application/hwp+zip"

	// SupportedMajor is the only HCFVersion major this package decodes.
	SupportedMajor = 5

	packagePart  = "Contents/content.hpf"
	manifestPart = "META-INF/manifest.xml"
)

// Options tunes a Reader.
type Options struct {
	Logger *slog.Logger
}

// Reader provides access to HWPX document content
type Reader struct {
	c        container.Container
	Version  Version
	sections []string
	meta     document.Metadata
	log      *slog.Logger
}

// Version represents the HWPX format version
type Version struct {
	Major       int
	Minor       int
	Micro       int
	BuildNumber int
	XMLVersion  string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Micro, v.BuildNumber)
}

// Open validates the package and resolves the section parts in reading
// order. Section content is not read.
func Open(c container.Container, opts Options) (*Reader, error) {
	r := &Reader{c: c, log: opts.Logger}
	if r.log == nil {
		r.log = slog.Default()
	}

	if err := r.validateMimetype(); err != nil {
		return nil, err
	}
	if err := r.parseVersion(); err != nil {
		return nil, err
	}
	if err := r.loadPackage(); err != nil {
		return nil, err
	}
	r.log.Debug("hwpx package validated", "version", r.Version.String(), "sections", len(r.sections))
	return r, nil
}

func (r *Reader) validateMimetype() error {
	if !r.c.Has("mimetype") {
		return hwperr.UnsupportedFormat("archive has no mimetype entry")
	}
	data, err := r.c.ReadStream("mimetype")
	if err != nil {
		return err
	}
	if got := string(bytes.TrimSpace(data)); got != mimeType {
		return hwperr.InvalidSignature(fmt.Sprintf("invalid mimetype: expected %q, got %q", mimeType, got))
	}
	return nil
}

func (r *Reader) parseVersion() error {
	if !r.c.Has("version.xml") {
		r.Version = Version{Major: SupportedMajor}
		return nil
	}
	data, err := r.c.ReadStream("version.xml")
	if err != nil {
		return err
	}

	var versionDoc struct {
		XMLName     xml.Name `xml:"HCFVersion"`
		Major       int      `xml:"major,attr"`
		Minor       int      `xml:"minor,attr"`
		Micro       int      `xml:"micro,attr"`
		BuildNumber int      `xml:"buildNumber,attr"`
		XMLVersion  string   `xml:"xmlVersion,attr"`
	}
	if err := xml.Unmarshal(data, &versionDoc); err != nil {
		return hwperr.InStream(hwperr.Hwpx("failed to parse version.xml", err), "version.xml")
	}

	r.Version = Version{
		Major:       versionDoc.Major,
		Minor:       versionDoc.Minor,
		Micro:       versionDoc.Micro,
		BuildNumber: versionDoc.BuildNumber,
		XMLVersion:  versionDoc.XMLVersion,
	}
	if r.Version.Major != SupportedMajor {
		return hwperr.UnsupportedVersion(r.Version.String())
	}
	return nil
}

type opfPackage struct {
	Metadata struct {
		Title   string    `xml:"title"`
		Creator string    `xml:"creator"`
		Subject string    `xml:"subject"`
		Metas   []opfMeta `xml:"meta"`
	} `xml:"metadata"`
	Items    []opfItem `xml:"manifest>item"`
	ItemRefs []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

type opfMeta struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

type opfItem struct {
	ID   string `xml:"id,attr"`
	Href string `xml:"href,attr"`
}

func (r *Reader) loadPackage() error {
	if !r.c.Has(packagePart) {
		return hwperr.UnsupportedFormat("archive has no " + packagePart)
	}
	data, err := r.c.ReadStream(packagePart)
	if err != nil {
		return err
	}
	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return hwperr.InStream(hwperr.Hwpx("failed to parse package", err), packagePart)
	}
	r.meta = packageMetadata(pkg)

	sectionItems := lo.Filter(pkg.Items, func(it opfItem, _ int) bool {
		return isSectionPart(path.Base(it.Href))
	})
	byID := lo.KeyBy(sectionItems, func(it opfItem) string { return it.ID })

	var hrefs []string
	for _, ref := range pkg.ItemRefs {
		if it, ok := byID[ref.IDRef]; ok {
			hrefs = append(hrefs, it.Href)
		}
	}
	if len(hrefs) == 0 {
		hrefs = lo.Map(sectionItems, func(it opfItem, _ int) string { return it.Href })
	}
	if len(hrefs) == 0 {
		hrefs = r.scanSectionParts()
	}
	if len(hrefs) == 0 {
		return hwperr.UnsupportedFormat("no section parts found")
	}

	for _, href := range lo.Uniq(hrefs) {
		name, ok := r.resolve(href)
		if !ok {
			return hwperr.UnsupportedFormat("section part missing: " + href)
		}
		r.sections = append(r.sections, name)
	}
	return nil
}

// resolve maps a package href to an archive entry. Hrefs are written
// relative to the archive root, but some writers make them relative to
// the Contents directory.
func (r *Reader) resolve(href string) (string, bool) {
	href = strings.TrimPrefix(href, "/")
	if r.c.Has(href) {
		return href, true
	}
	if alt := path.Join(path.Dir(packagePart), href); r.c.Has(alt) {
		return alt, true
	}
	return "", false
}

// scanSectionParts lists Contents/sectionN.xml entries in number order,
// for packages whose manifest does not name them.
func (r *Reader) scanSectionParts() []string {
	names := lo.FilterMap(r.c.Streams(), func(s container.Stream, _ int) (string, bool) {
		return s.Name, strings.HasPrefix(s.Name, "Contents/") && isSectionPart(path.Base(s.Name))
	})
	slices.SortStableFunc(names, func(a, b string) int {
		return cmp.Compare(sectionNumber(path.Base(a)), sectionNumber(path.Base(b)))
	})
	return names
}

func isSectionPart(base string) bool {
	return sectionNumber(base) >= 0
}

func sectionNumber(base string) int {
	rest, ok := strings.CutPrefix(base, "section")
	if !ok {
		return -1
	}
	rest, ok = strings.CutSuffix(rest, ".xml")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func packageMetadata(pkg opfPackage) document.Metadata {
	meta := document.Metadata{
		Title:   strings.TrimSpace(pkg.Metadata.Title),
		Author:  strings.TrimSpace(pkg.Metadata.Creator),
		Subject: strings.TrimSpace(pkg.Metadata.Subject),
	}
	for _, m := range pkg.Metadata.Metas {
		v := strings.TrimSpace(m.Text)
		if v == "" {
			continue
		}
		switch strings.ToLower(m.Name) {
		case "creator":
			meta.Author = v
		case "subject":
			meta.Subject = v
		case "description":
			meta.Comments = v
		case "keyword":
			meta.Keywords = v
		case "lastsaveby":
			meta.LastAuthor = v
		case "createddate":
			meta.Created = parseTime(v)
		case "modifieddate":
			meta.Modified = parseTime(v)
		}
	}
	return meta
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// CheckProtection fails when the archive manifest declares encrypted parts.
// No section part is read before this check passes.
func (r *Reader) CheckProtection() error {
	if !r.c.Has(manifestPart) {
		return nil
	}
	data, err := r.c.ReadStream(manifestPart)
	if err != nil {
		return err
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return hwperr.InStream(hwperr.Hwpx("failed to parse manifest", err), manifestPart)
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "encryption-data" {
			return hwperr.PasswordProtected()
		}
	}
}

// SectionNames lists the section parts in reading order.
func (r *Reader) SectionNames() []string {
	return slices.Clone(r.sections)
}

// Streams lists the archive entries.
func (r *Reader) Streams() []container.Stream {
	return r.c.Streams()
}

// Metadata returns the package metadata.
func (r *Reader) Metadata() document.Metadata {
	return r.meta
}

// Extract decodes every section part into a document.
func (r *Reader) Extract() (*document.Document, error) {
	if err := r.CheckProtection(); err != nil {
		return nil, err
	}
	doc := &document.Document{Metadata: r.meta}
	for _, name := range r.sections {
		data, err := r.c.ReadStream(name)
		if err != nil {
			return nil, err
		}
		sec, err := ParseSection(name, bytes.NewReader(data))
		if err != nil {
			return nil, hwperr.InStream(err, name)
		}
		r.log.Debug("section decoded", "part", name, "blocks", len(sec.Blocks))
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}
