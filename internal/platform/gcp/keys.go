package gcp

import (
	"net/url"
	"path"
	"strings"
)

// NormalizeKey turns a client-supplied storage path into an object key: the
// bucket name prefix and any leading slashes are stripped.
func NormalizeKey(bucket, raw string) string {
	key := strings.TrimSpace(raw)
	key = strings.TrimLeft(key, "/")
	if bucket != "" {
		key = strings.TrimPrefix(key, bucket+"/")
	}
	return strings.TrimLeft(key, "/")
}

// PaperKey is the object key an uploaded paper is stored under.
func PaperKey(applicationID, filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "paper.pdf"
	}
	return "public/" + applicationID + "/" + name
}

func emulatorMediaURL(host, bucket, key string) string {
	return strings.TrimRight(host, "/") + "/storage/v1/b/" + url.PathEscape(bucket) + "/o/" + url.PathEscape(key) + "?alt=media"
}
