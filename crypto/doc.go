// Package crypto implements the wallet-side cryptographic core: key
// lifecycle, symmetric encryption, password hashing, digest computation, and
// secp256k1 signing for Ethereum-style transactions and messages.
//
// The central contract of this package is that raw secret bytes never leave
// a bounded scope. Private keys live in platform storage and are only ever
// visible inside the callback passed to KeyManager.WithKey; every buffer
// that held secret material is overwritten with zeros before the operation
// returns, on every exit path.
//
// Example:
//
//	store := storage.NewMemoryStorage()
//	keys := crypto.NewKeyManager(store)
//	handle, err := keys.Generate(ctx, "wallet-main")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sigs := crypto.NewSignatureManager(keys)
//	sig, err := sigs.SignMessage(ctx, []byte("hello"), handle)
package crypto
