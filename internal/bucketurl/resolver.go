// Package bucketurl recovers bucket-relative object paths from stored object
// URLs, including URLs issued under an older bucket name or project host.
package bucketurl

import (
	"regexp"
	"strings"
)

const (
	publicSegment = "/object/public/"
	signSegment   = "/object/sign/"
)

// hostedProject matches the scheme and host of a hosted storage project URL.
// The host must be followed by a separator or the end of the URL.
var hostedProject = regexp.MustCompile(`^https://[a-z0-9-]+\.supabase\.co([/?#]|$)`)

// Config is passed explicitly so the resolver never reads the environment.
type Config struct {
	// Bucket is the current bucket name.
	Bucket string
	// LegacyBuckets are bucket names older records may still carry.
	LegacyBuckets []string
	// Host is the current project host, e.g. "abcd.supabase.co". Empty disables host rewriting.
	Host string
}

// Matcher extracts a relative path from a URL, reporting whether it applied.
type Matcher func(rawURL string) (string, bool)

type Resolver struct {
	bucket        string
	legacyBuckets []string
	host          string
	matchers      []Matcher
}

func New(cfg Config) *Resolver {
	r := &Resolver{
		bucket: cfg.Bucket,
		host:   strings.TrimSuffix(strings.TrimPrefix(cfg.Host, "https://"), "/"),
	}
	for _, b := range cfg.LegacyBuckets {
		if b != "" && b != cfg.Bucket {
			r.legacyBuckets = append(r.legacyBuckets, b)
		}
	}

	// Legacy names are only trusted behind a storage API segment; a bare
	// "/<legacy>/" in a foreign URL says nothing about this project.
	known := append([]string{r.bucket}, r.legacyBuckets...)
	r.matchers = []Matcher{
		SegmentMatcher(publicSegment, known),
		SegmentMatcher(signSegment, known),
		SegmentMatcher("/", []string{r.bucket}),
	}
	return r
}

// Bucket returns the current bucket name.
func (r *Resolver) Bucket() string {
	return r.bucket
}

// ResolveCanonicalURL rewrites a stored URL so it points at the current
// bucket and project host. Applying it to its own output is a no-op.
func (r *Resolver) ResolveCanonicalURL(storedURL string) string {
	fixed := storedURL
	for _, legacy := range r.legacyBuckets {
		fixed = strings.Replace(fixed, publicSegment+legacy+"/", publicSegment+r.bucket+"/", 1)
		fixed = strings.Replace(fixed, signSegment+legacy+"/", signSegment+r.bucket+"/", 1)
	}
	if r.host != "" {
		if loc := hostedProject.FindStringSubmatchIndex(fixed); loc != nil {
			fixed = "https://" + r.host + fixed[loc[2]:]
		}
	}
	return fixed
}

// ExtractRelativePath returns the bucket-relative path of rawURL, trying the
// public, signed and generic shapes in that order. It returns "" when no
// shape matches; callers must not retry in that case.
func (r *Resolver) ExtractRelativePath(rawURL string) string {
	for _, match := range r.matchers {
		if p, ok := match(rawURL); ok {
			return p
		}
	}
	return ""
}

// SegmentMatcher matches "<prefix><bucket>/<path>" for any of the given
// buckets. Query string and fragment are not part of the path.
func SegmentMatcher(prefix string, buckets []string) Matcher {
	return func(rawURL string) (string, bool) {
		u := stripQuery(rawURL)
		for _, b := range buckets {
			if b == "" {
				continue
			}
			marker := prefix + b + "/"
			i := strings.Index(u, marker)
			if i < 0 {
				continue
			}
			if p := u[i+len(marker):]; p != "" {
				return p, true
			}
		}
		return "", false
	}
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}
