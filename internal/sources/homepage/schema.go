package homepage

// Homepage keys its YAML by display name at every level, so both files
// decode into slices of single-key maps.

// BookmarksConfig is bookmarks.yaml:
//
//	- Category:
//	    - Name:
//	        - href: https://...
//	          abbr: XY
type BookmarksConfig []map[string][]map[string][]BookmarkEntry

// BookmarkEntry is the property list under one bookmark name. Homepage only
// reads the first element.
type BookmarkEntry struct {
	Href        string `yaml:"href"`
	Abbr        string `yaml:"abbr"`
	Icon        string `yaml:"icon"`
	Description string `yaml:"description,omitempty"`
}

// ServicesConfig is services.yaml, shaped like bookmarks.yaml but with a
// single property map per service.
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps keeps what quickmark imports; widgets, pings and monitors
// are ignored.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}
