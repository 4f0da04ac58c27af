package bucketurl

import "strings"

const storagePrefix = "/storage/v1"

// PublicURL builds the public object URL for path in bucket under projectURL.
func PublicURL(projectURL, bucket, path string) string {
	return strings.TrimSuffix(projectURL, "/") + storagePrefix + publicSegment + bucket + "/" + strings.TrimPrefix(path, "/")
}

// SignEndpoint builds the URL that issues signed URLs for path in bucket.
func SignEndpoint(projectURL, bucket, path string) string {
	return strings.TrimSuffix(projectURL, "/") + storagePrefix + signSegment + bucket + "/" + strings.TrimPrefix(path, "/")
}

// ObjectEndpoint builds the upload/download URL for path in bucket.
func ObjectEndpoint(projectURL, bucket, path string) string {
	base := strings.TrimSuffix(projectURL, "/") + storagePrefix + "/object/" + bucket
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimPrefix(path, "/")
}

// AbsoluteSignedURL resolves the relative signed URL returned by the storage
// service ("/object/sign/...") against projectURL.
func AbsoluteSignedURL(projectURL, signed string) string {
	if strings.HasPrefix(signed, "http://") || strings.HasPrefix(signed, "https://") {
		return signed
	}
	if !strings.HasPrefix(signed, storagePrefix) {
		signed = storagePrefix + "/" + strings.TrimPrefix(signed, "/")
	}
	return strings.TrimSuffix(projectURL, "/") + signed
}

// HostOf returns the host part of a project URL such as "https://abcd.supabase.co".
func HostOf(projectURL string) string {
	h := strings.TrimPrefix(strings.TrimPrefix(projectURL, "https://"), "http://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	return h
}
