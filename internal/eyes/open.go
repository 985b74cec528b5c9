package eyes

// OpenOptions are the caller's arguments for opening a session. Unset fields
// are not sent; Extra carries service options without a dedicated field.
type OpenOptions struct {
	AppName   string         `yaml:"appName"`
	TestName  string         `yaml:"testName"`
	BatchName string         `yaml:"batchName"`
	Browser   *BrowserInfo   `yaml:"browser"`
	Extra     map[string]any `yaml:",inline"`
}

// BrowserInfo describes the rendering environment the service should use.
type BrowserInfo struct {
	Name   string `json:"name,omitempty" yaml:"name"`
	Width  int    `json:"width,omitempty" yaml:"width"`
	Height int    `json:"height,omitempty" yaml:"height"`
}

// payload builds the open data: the current test name, overlaid with the
// caller's arguments.
func (o OpenOptions) payload(testName string) map[string]any {
	data := map[string]any{"testName": testName}
	for k, v := range o.Extra {
		data[k] = v
	}
	if o.AppName != "" {
		data["appName"] = o.AppName
	}
	if o.TestName != "" {
		data["testName"] = o.TestName
	}
	if o.BatchName != "" {
		data["batchName"] = o.BatchName
	}
	if o.Browser != nil {
		data["browser"] = o.Browser
	}
	return data
}
