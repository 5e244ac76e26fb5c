package homepage

// BookmarksConfig is the root of bookmarks.yaml:
//
//	- Category:
//	    - Name:
//	        - abbr: GH
//	          href: https://github.com
//
// Each bookmark name maps to a list holding a single entry.
type BookmarksConfig []map[string][]map[string][]BookmarkEntry

// BookmarkEntry holds the properties of one bookmark.
type BookmarkEntry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// ServicesConfig is the root of services.yaml. Homepage uses dynamic keys,
// so groups and services are parsed as maps.
type ServicesConfig []map[string][]map[string]ServiceProps

// ServiceProps contains the service properties we care about. Widgets and
// monitors are ignored.
type ServiceProps struct {
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon,omitempty"`
	Description string `yaml:"description,omitempty"`
}
