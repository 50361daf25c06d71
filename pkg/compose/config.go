package compose

// SiteConfig carries the site-wide settings a render or editor call needs.
// It is loaded from the settings store once per request and passed in
// explicitly; nothing in this package reads ambient global state.
type SiteConfig struct {
	// SiteName is shown in the admin UI and available to dashboards.
	SiteName string

	// SiteDescription is the default description for generated pages.
	SiteDescription string

	// BaseURL is the public root the published artifacts are served from.
	BaseURL string

	// HideSystemBlocks hides system-category blocks in the page editor's
	// block list by default.
	HideSystemBlocks bool
}

// DefaultSiteConfig returns the settings a fresh install starts with.
func DefaultSiteConfig() SiteConfig {
	return SiteConfig{
		SiteName:         "FreedomCMS",
		SiteDescription:  "A block-based CMS",
		BaseURL:          "http://localhost:7297",
		HideSystemBlocks: true,
	}
}

// Values exposes the site settings as placeholder values, keyed the way
// template text references them ({{site_name}} and friends). Block-level
// values take precedence over these during composition.
func (c SiteConfig) Values() map[string]string {
	return map[string]string{
		"site_name":        c.SiteName,
		"site_description": c.SiteDescription,
		"base_url":         c.BaseURL,
	}
}
