package synthetic

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// The disk cache is keyed by (artifact kind, parameter fingerprint, seed).
// Files are written to a temp name and renamed into place so concurrent
// sampler processes sharing the directory never observe partial writes; no
// locking is taken and none may be assumed by callers.

func cacheKey(kind, fingerprint string, seed int64) string {
	return fmt.Sprintf("%s_%016x_%d", kind, fingerprintSeed(fingerprint), seed)
}

func cachePath(dir, key string) string {
	return filepath.Join(dir, key+".yaml")
}

// loadCached reads one artifact; a miss or an undecodable file is a miss.
func loadCached(dir, key string, out any) bool {
	if dir == "" {
		return false
	}
	data, err := os.ReadFile(cachePath(dir, key))
	if err != nil {
		return false
	}
	return yaml.Unmarshal(data, out) == nil
}

// writeCached persists one artifact. Cache writes are best-effort: a failure
// is logged and the computed artifact is still returned to the caller.
func writeCached(dir, key string, artifact any, log *logrus.Entry) {
	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warnf("creating cache dir %s: %v", dir, err)
		return
	}
	data, err := yaml.Marshal(artifact)
	if err != nil {
		log.Warnf("encoding cache entry %s: %v", key, err)
		return
	}
	tmp, err := os.CreateTemp(dir, key+".tmp*")
	if err != nil {
		log.Warnf("writing cache entry %s: %v", key, err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		log.Warnf("writing cache entry %s: %v", key, err)
		return
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), cachePath(dir, key)); err != nil {
		os.Remove(tmp.Name())
		log.Warnf("publishing cache entry %s: %v", key, err)
	}
}

// seedIndexKey is the parameter-keyed marker recording which seed the cached
// initial conditions for a parameter set were generated with, so a
// seed-agnostic request can adopt it instead of recomputing.
func seedIndexKey(fingerprint string) string {
	return fmt.Sprintf("seedidx_%016x", fingerprintSeed(fingerprint))
}

func lookupSeed(dir, fingerprint string) (int64, bool) {
	if dir == "" {
		return 0, false
	}
	var seed int64
	if !loadCached(dir, seedIndexKey(fingerprint), &seed) {
		return 0, false
	}
	return seed, true
}

func recordSeed(dir, fingerprint string, seed int64, log *logrus.Entry) {
	writeCached(dir, seedIndexKey(fingerprint), seed, log)
}
