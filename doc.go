// Package walletcore implements the wallet-side cryptographic core: secure
// key lifecycle, symmetric encryption, password hashing, digest computation,
// and secp256k1 signing for Ethereum-style transactions and messages.
//
// This package is the composition root. It constructs and owns one instance
// of each manager in the crypto subpackage and exposes a coordinated
// init/cleanup lifecycle to the embedding application (mobile app, relay
// server, CLI). The core performs no network I/O and persists nothing
// itself; durable key storage is delegated to the storage.PlatformStorage
// capability supplied through Options.
//
// # Getting Started
//
// Create a CryptoManager with options, initialize it, and use the managers:
//
//	options := walletcore.DefaultOptions()
//
//	manager, err := walletcore.New(options)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := manager.Init(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Cleanup()
//
//	key, err := manager.Keys().Generate(ctx, "wallet-main")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sig, err := manager.Signatures().SignMessage(ctx, []byte("hello"), key)
//
// The hard invariant throughout is that raw secret bytes never leave a
// bounded scope: private keys are only visible inside the callback passed to
// KeyManager.WithKey, and every buffer that held secret material is
// overwritten with zeros before the operation returns.
package walletcore
