package boundary

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
)

// ErrUnsupportedCRS is returned for coordinate reference systems that cannot be reprojected.
var ErrUnsupportedCRS = errors.New("unsupported coordinate reference system")

// maxMercatorLatitude is the latitude limit of the Web Mercator frame.
const maxMercatorLatitude = 85.05112878

// PROJ.4 definitions of the frames boundary data is usually published in.
const (
	wgs84Def    = "+proj=longlat +datum=WGS84 +no_defs"
	mercatorDef = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +no_defs"
	albersDef   = "+proj=aea +lat_1=-18 +lat_2=-36 +lat_0=0 +lon_0=132 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"
	lambertDef  = "+proj=lcc +lat_1=-18 +lat_2=-36 +lat_0=0 +lon_0=134 +x_0=0 +y_0=0 +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"
	mgaDef      = "+proj=utm +zone=%d +south +ellps=GRS80 +towgs84=0,0,0,0,0,0,0 +units=m +no_defs"
	utmDef      = "+proj=utm +zone=%d%s +datum=WGS84 +units=m +no_defs"
)

// CRS is the coordinate reference frame of a boundary map.
type CRS struct {
	Code      string           // EPSG code, e.g. "EPSG:4326", or the frame name.
	transform proj.Transformer // nil for geographic lon/lat frames.
	mercator  bool
}

// WGS84 is the frame of input coordinates.
var WGS84 = CRS{Code: "EPSG:4326"}

// WebMercator is the spherical mercator frame used by most web map exports.
var WebMercator = mustProjected("EPSG:3857", mercatorDef)

var geographicCodes = map[int]bool{
	4326: true, // WGS 84
	4283: true, // GDA94
	7844: true, // GDA2020
	4269: true, // NAD83
	4258: true, // ETRS89
}

var (
	epsgAuthority = regexp.MustCompile(`AUTHORITY\["EPSG",\s*"?(\d+)"?\]`)
	projcsName    = regexp.MustCompile(`^PROJCS\["([^"]+)"`)
	mgaZone       = regexp.MustCompile(`MGA_ZONE_(\d+)`)
	utmZone       = regexp.MustCompile(`UTM_ZONE_(\d+)([NS])`)
)

// definition returns the PROJ.4 string of an EPSG code. geographic frames have none.
func definition(code int) (string, bool) {
	switch {
	case code == 3857 || code == 900913 || code == 3785 || code == 102100:
		return mercatorDef, true
	case code == 3577 || code == 9473:
		return albersDef, true
	case code == 3112 || code == 7845:
		return lambertDef, true
	case code >= 28348 && code <= 28358:
		return fmt.Sprintf(mgaDef, code-28300), true
	case code >= 7846 && code <= 7859:
		return fmt.Sprintf(mgaDef, code-7800), true
	case code >= 32601 && code <= 32660:
		return fmt.Sprintf(utmDef, code-32600, ""), true
	case code >= 32701 && code <= 32760:
		return fmt.Sprintf(utmDef, code-32700, " +south"), true
	default:
		return "", false
	}
}

// ParseCRS resolves a code such as "EPSG:4283", "epsg:28355" or "4326", or a PROJ.4
// definition starting with "+proj=". An empty value means WGS84.
func ParseCRS(value string) (CRS, error) {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "+proj=") {
		if isLonLat(value) {
			return CRS{Code: value}, nil
		}
		return newProjected(value, value)
	}

	code := strings.TrimPrefix(strings.ToUpper(value), "EPSG:")
	if code == "" || code == "WGS84" {
		return WGS84, nil
	}

	number, err := strconv.Atoi(code)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, value)
	}

	return fromEPSG(number)
}

func fromEPSG(code int) (CRS, error) {
	name := "EPSG:" + strconv.Itoa(code)
	if geographicCodes[code] {
		return CRS{Code: name}, nil
	}

	def, ok := definition(code)
	if !ok {
		return CRS{}, fmt.Errorf("%w: %s", ErrUnsupportedCRS, name)
	}

	return newProjected(name, def)
}

// CRSFromPRJ resolves the frame declared by the WKT content of a shapefile .prj file.
// Geographic frames with an unknown datum are treated as plain lon/lat. Projected frames
// without a known EPSG code are handed to the WKT parser.
func CRSFromPRJ(wkt string) (CRS, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return WGS84, nil
	}

	if matches := epsgAuthority.FindAllStringSubmatch(wkt, -1); len(matches) > 0 {
		code, _ := strconv.Atoi(matches[len(matches)-1][1])
		if crs, err := fromEPSG(code); err == nil {
			return crs, nil
		}
	}

	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(upper, "GEOGCS"):
		return CRS{Code: geographicCode(upper)}, nil
	case strings.HasPrefix(upper, "PROJCS"):
		if code, ok := projectedCode(upper); ok {
			return fromEPSG(code)
		}
		name := wkt
		if match := projcsName.FindStringSubmatch(wkt); match != nil {
			name = match[1]
		}
		return newProjected(name, wkt)
	default:
		return CRS{}, fmt.Errorf("%w: %.60s", ErrUnsupportedCRS, wkt)
	}
}

// projectedCode recognises the ESRI names of common projected frames.
func projectedCode(upperWKT string) (int, bool) {
	if strings.Contains(upperWKT, "MERCATOR_AUXILIARY_SPHERE") ||
		strings.Contains(upperWKT, "PSEUDO_MERCATOR") ||
		strings.Contains(upperWKT, "PSEUDO-MERCATOR") {
		return 3857, true
	}

	if match := mgaZone.FindStringSubmatch(upperWKT); match != nil {
		zone, _ := strconv.Atoi(match[1])
		if strings.Contains(upperWKT, "GDA2020") {
			return 7800 + zone, true
		}
		return 28300 + zone, true
	}

	if match := utmZone.FindStringSubmatch(upperWKT); match != nil && strings.Contains(upperWKT, "WGS_1984") {
		zone, _ := strconv.Atoi(match[1])
		if match[2] == "S" {
			return 32700 + zone, true
		}
		return 32600 + zone, true
	}

	return 0, false
}

func geographicCode(upperWKT string) string {
	switch {
	case strings.Contains(upperWKT, "GDA2020"):
		return "EPSG:7844"
	case strings.Contains(upperWKT, "GDA94") || strings.Contains(upperWKT, "GDA_1994") ||
		strings.Contains(upperWKT, "AUSTRALIA_1994"):
		return "EPSG:4283"
	case strings.Contains(upperWKT, "NORTH_AMERICAN_DATUM_1983"):
		return "EPSG:4269"
	case strings.Contains(upperWKT, "ETRS"):
		return "EPSG:4258"
	default:
		return "EPSG:4326"
	}
}

func isLonLat(def string) bool {
	return strings.Contains(def, "+proj=longlat") || strings.Contains(def, "+proj=latlong")
}

// newProjected builds the WGS84 to frame transform from a PROJ.4 or WKT definition.
func newProjected(name, def string) (CRS, error) {
	src, err := proj.Parse(wgs84Def)
	if err != nil {
		return CRS{}, fmt.Errorf("failed to parse WGS84 definition: %w", err)
	}

	dst, err := proj.Parse(def)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedCRS, name, err)
	}

	transform, err := src.NewTransform(dst)
	if err != nil {
		return CRS{}, fmt.Errorf("%w: %s: %w", ErrUnsupportedCRS, name, err)
	}

	return CRS{
		Code:      name,
		transform: transform,
		mercator:  strings.Contains(def, "+proj=merc "),
	}, nil
}

func mustProjected(name, def string) CRS {
	crs, err := newProjected(name, def)
	if err != nil {
		panic(err)
	}

	return crs
}

// Geographic reports whether the frame uses lon/lat degrees.
func (c CRS) Geographic() bool {
	return c.transform == nil
}

// Project converts a WGS84 lon/lat point into the frame. It reports false when the point
// has no representation in the frame (e.g. beyond the mercator latitude limit).
func (c CRS) Project(point orb.Point) (orb.Point, bool) {
	if c.transform == nil {
		return point, true
	}
	if c.mercator && math.Abs(point.Lat()) > maxMercatorLatitude {
		return orb.Point{}, false
	}

	x, y, err := c.transform(point.Lon(), point.Lat())
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return orb.Point{}, false
	}

	return orb.Point{x, y}, true
}

func (c CRS) String() string {
	return c.Code
}
