package object

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// HashBytes returns the raw SHA-256 of data as lowercase hex. It does not
// apply the object envelope; use HashObject for addressable objects.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashObject computes the content address of an object: the SHA-256 of
// "<type> <len>\x00<content>". The envelope binds the type and length into
// the hash, so equal bytes stored as different types never collide.
func HashObject(objType ObjectType, data []byte) Hash {
	d := sha256.New()
	d.Write([]byte(objType))
	d.Write([]byte{' '})
	d.Write([]byte(strconv.Itoa(len(data))))
	d.Write([]byte{0})
	d.Write(data)
	return Hash(hex.EncodeToString(d.Sum(nil)))
}
