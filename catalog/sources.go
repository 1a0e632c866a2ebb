// Package catalog resolves two-line element sets by satellite name from a
// prioritised list of remote text catalogs.
package catalog

// Source is a remote catalog: a base location and the sub-paths searched under
// it, in order. A single-document catalog has one empty path.
type Source struct {
	Name    string   `mapstructure:"name"`
	BaseURL string   `mapstructure:"baseUrl" validate:"required"`
	Paths   []string `mapstructure:"paths"`
}

// URLs returns BaseURL joined with each path, in search order. A source
// without paths yields BaseURL alone.
func (s Source) URLs() []string {
	if len(s.Paths) == 0 {
		return []string{s.BaseURL}
	}
	urls := make([]string, 0, len(s.Paths))
	for _, p := range s.Paths {
		urls = append(urls, s.BaseURL+p)
	}
	return urls
}

const (
	AMSATURL     = "http://www.amsat.org/amsat/ftp/keps/current/nasa.all"
	CelesTrakURL = "http://www.celestrak.com/NORAD/elements/"
)

// CelesTrakPaths lists the CelesTrak category documents in search order.
var CelesTrakPaths = []string{
	"stations.txt", "weather.txt", "noaa.txt", "goes.txt", "resource.txt",
	"sarsat.txt", "dmc.txt", "tdrss.txt", "argos.txt",
	"geo.txt", "intelsat.txt", "gorizont.txt", "raduga.txt", "molniya.txt",
	"iridium.txt", "orbcomm.txt", "globalstar.txt",
	"amateur.txt", "x-comm.txt", "other-comm.txt",
	"gps-ops.txt", "glo-ops.txt", "galileo.txt", "beidou.txt",
	"sbas.txt", "nnss.txt", "musson.txt", "science.txt", "geodetic.txt",
	"engineering.txt", "education.txt", "military.txt",
	"radar.txt", "cubesat.txt", "other.txt", "tle-new.txt",
}

// AMSAT is the aggregate AMSAT keplerian element list.
func AMSAT() Source {
	return Source{Name: "amsat", BaseURL: AMSATURL, Paths: []string{""}}
}

// CelesTrak is the CelesTrak category catalog family.
func CelesTrak() Source {
	paths := make([]string, len(CelesTrakPaths))
	copy(paths, CelesTrakPaths)
	return Source{Name: "celestrak", BaseURL: CelesTrakURL, Paths: paths}
}

// DefaultSources returns the fixed search priority: the AMSAT aggregate
// first, then every CelesTrak category. Resolution is deterministic for
// deterministic fetch responses, so this order must not change casually.
func DefaultSources() []Source {
	return []Source{AMSAT(), CelesTrak()}
}
