package export

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"

	memerrors "github.com/orizon-lang/memtrace/internal/errors"
	"github.com/orizon-lang/memtrace/internal/semverdoc"
)

// ValidateShard re-reads a JSON shard Export wrote and checks its metadata
// envelope: the schema_version must still be compatible with
// semverdoc.CurrentSchemaVersion, and, if the shard carries an
// integrity_hash, the body must still hash to it. Both failures come back
// as an internal/errors.ValidationError, per SPEC_FULL.md §7's "ValidationError
// returned to the caller with file path and JSON-pointer error path."
func ValidateShard(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var decoded struct {
		Metadata metadata        `json:"metadata"`
		Data     json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(body, &decoded); err != nil {
		return memerrors.ValidationError(path, "$", err)
	}

	ok, err := semverdoc.Compatible(semverdoc.CurrentSchemaVersion, decoded.Metadata.SchemaVersion)
	if err != nil {
		return memerrors.ValidationError(path, "$.metadata.schema_version", err)
	}

	if !ok {
		return memerrors.ValidationError(path, "$.metadata.schema_version",
			fmt.Errorf("shard schema_version %q is incompatible with reader version %q",
				decoded.Metadata.SchemaVersion, semverdoc.CurrentSchemaVersion))
	}

	if decoded.Metadata.IntegrityHash == "" {
		return nil
	}

	// decoded.Data carries exactly the bytes embedded in the file's "data"
	// field, which writeShardFile produced as a compact marshal of the same
	// value it hashed — no re-marshaling needed here.
	h := fnv.New64a()
	h.Write(decoded.Data)
	recomputed := fmt.Sprintf("%016x", h.Sum64())

	if recomputed != decoded.Metadata.IntegrityHash {
		return memerrors.ValidationError(path, "$.metadata.integrity_hash",
			fmt.Errorf("recomputed hash %s does not match stored %s", recomputed, decoded.Metadata.IntegrityHash))
	}

	return nil
}
