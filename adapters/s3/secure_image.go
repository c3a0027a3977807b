package s3

// SecureMIMETypesExtension lists the image types accepted as deposit
// receipts and the extension each is stored under. Receipts are photos
// or screenshots of the transfer, nothing else gets in.
var SecureMIMETypesExtension = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
	"image/webp": "webp",
}

// CheckSecureImageAndGetExtension reports whether the sniffed MIME
// type is an accepted image and returns its storage extension.
func CheckSecureImageAndGetExtension(mimeType string) (bool, string) {
	ext, ok := SecureMIMETypesExtension[mimeType]
	return ok, ext
}
