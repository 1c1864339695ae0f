package sqlite

import (
	"time"

	"github.com/aussiebroadwan/sessiond/pkg/jwtx"
)

func jwtxRecord(id, kid string, created time.Time) jwtx.SigningKeyRecord {
	return jwtx.SigningKeyRecord{
		ID:                  id,
		KID:                 kid,
		Algorithm:           jwtx.AlgorithmRS256,
		PrivateKeyEncrypted: []byte("sealed"),
		CreatedAt:           created,
	}
}
