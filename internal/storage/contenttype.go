package storage

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
}

// ContentTypeFor infers the content type of an object from its key extension.
func ContentTypeFor(key string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return defaultContentType
}

// publicURL joins a base URL and a key. An empty base yields the virtual
// hosted S3 URL for bucket.
func publicURL(base, bucket, key string) string {
	key = strings.TrimPrefix(key, "/")
	if base != "" {
		return strings.TrimSuffix(base, "/") + "/" + key
	}
	return "https://" + bucket + ".s3.amazonaws.com/" + key
}
