// Package imagesniff detects the format of an image payload from its magic
// numbers. Gallery uploads are rejected before any blob or metadata write when
// the payload is not a recognized image, and the detected format becomes part
// of the stored blob key ({sha1}.{format}), so the format names returned here
// are load-bearing and must stay stable.
package imagesniff

import "bytes"

// maxHeader is the number of leading bytes any detector may inspect.
const maxHeader = 12

var (
	pngMagic    = []byte("\x89PNG\r\n\x1a\n")
	jfifMagic   = []byte("JFIF")
	exifMagic   = []byte("Exif")
	jpegRaw     = []byte("\xDB\x00C")
	gif87a      = []byte("GIF87a")
	gif89a      = []byte("GIF89a")
	tiffMM      = []byte("MM")
	tiffII      = []byte("II")
	riffMagic   = []byte("RIFF")
	webpMagic   = []byte("WEBP")
	bmpMagic    = []byte("BM")
	icoMagic    = []byte("\x00\x00\x01\x00")
	avifBrand   = []byte("avif")
	flifMagic   = []byte("FLIF")
	openEXR     = []byte("\x76\x2F\x31\x01")
	sunRaster   = []byte("\x59\xA6\x6A\x95")
	sgiRGBMagic = []byte("\x01\xda")
)

// Detect returns the image format name ("png", "jpeg", "gif", ...) for the
// given bytes, or ok=false when the payload does not match any known format.
// Only the first few bytes are examined; a truncated header is never an error,
// just an unrecognized payload.
func Detect(data []byte) (format string, ok bool) {
	switch {
	case has(data, 0, pngMagic):
		return "png", true
	case has(data, 6, jfifMagic), has(data, 6, exifMagic), has(data, 3, jpegRaw):
		return "jpeg", true
	case has(data, 0, gif87a), has(data, 0, gif89a):
		return "gif", true
	case has(data, 0, riffMagic) && has(data, 8, webpMagic):
		return "webp", true
	case has(data, 0, tiffMM), has(data, 0, tiffII):
		return "tiff", true
	case has(data, 0, sunRaster):
		return "rast", true
	case has(data, 0, openEXR):
		return "exr", true
	case has(data, 0, bmpMagic):
		return "bmp", true
	case has(data, 0, sgiRGBMagic):
		return "rgb", true
	case has(data, 0, flifMagic):
		return "flif", true
	case has(data, 0, icoMagic):
		return "ico", true
	case has(data, 8, avifBrand):
		return "avif", true
	case isPNM(data, '1', '4'):
		return "pbm", true
	case isPNM(data, '2', '5'):
		return "pgm", true
	case isPNM(data, '3', '6'):
		return "ppm", true
	}

	return "", false
}

// has reports whether data carries magic at the given offset.
func has(data []byte, offset int, magic []byte) bool {
	if len(data) < offset+len(magic) {
		return false
	}
	return bytes.Equal(data[offset:offset+len(magic)], magic)
}

// isPNM matches the netpbm family headers: 'P' followed by one of two type
// digits and a whitespace separator.
func isPNM(data []byte, a, b byte) bool {
	if len(data) < 3 {
		return false
	}
	if data[0] != 'P' || (data[1] != a && data[1] != b) {
		return false
	}
	switch data[2] {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
