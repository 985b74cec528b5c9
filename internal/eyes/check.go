package eyes

import (
	"encoding/json"

	"github.com/raysh454/eyes/internal/capture"
	"github.com/raysh454/eyes/internal/resource"
)

// CheckTarget says what a window check should look at. It is either a Tag or
// a CheckSettings.
type CheckTarget interface {
	checkSettings() CheckSettings
}

// Tag names a check and leaves every other setting to the service.
type Tag string

func (t Tag) checkSettings() CheckSettings { return CheckSettings{Tag: string(t)} }

// CheckSettings is the structured form of a CheckTarget. Zero-valued fields
// are left out of the request.
type CheckSettings struct {
	Tag         string            `yaml:"tag"`
	SizeMode    string            `yaml:"sizeMode"`
	Selector    string            `yaml:"selector"`
	Region      *Region           `yaml:"region"`
	ScriptHooks map[string]string `yaml:"scriptHooks"`
	Ignore      []Region          `yaml:"ignore"`
}

func (s CheckSettings) checkSettings() CheckSettings { return s }

// Region is a rectangle in page coordinates.
type Region struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// CheckRequest is the checkWindow payload.
type CheckRequest struct {
	URL          string              `json:"url"`
	ResourceURLs []string            `json:"resourceUrls"`
	CDT          capture.CDT         `json:"cdt"`
	Tag          string              `json:"tag,omitempty"`
	SizeMode     string              `json:"sizeMode,omitempty"`
	BlobData     []resource.BlobData `json:"blobData"`
	DOMCapture   json.RawMessage     `json:"domCapture,omitempty"`
	Selector     string              `json:"selector,omitempty"`
	Region       *Region             `json:"region,omitempty"`
	ScriptHooks  map[string]string   `json:"scriptHooks,omitempty"`
	Ignore       []Region            `json:"ignore,omitempty"`
}

// NewCheckRequest assembles the payload for one check from a page snapshot.
// A nil target yields a request with every optional field absent.
func NewCheckRequest(snap *capture.Snapshot, target CheckTarget) *CheckRequest {
	var s CheckSettings
	if target != nil {
		s = target.checkSettings()
	}
	req := &CheckRequest{
		URL:          snap.URL,
		ResourceURLs: snap.ResourceURLs,
		CDT:          snap.CDT,
		BlobData:     resource.MetaOf(snap.Blobs),
		DOMCapture:   snap.DOMCapture,
		Tag:          s.Tag,
		SizeMode:     s.SizeMode,
		Selector:     s.Selector,
		Region:       s.Region,
		ScriptHooks:  s.ScriptHooks,
		Ignore:       s.Ignore,
	}
	if req.ResourceURLs == nil {
		req.ResourceURLs = []string{}
	}
	return req
}
