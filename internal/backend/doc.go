// Package backend defines the contract between the verification core and
// the observability platform it inspects.
//
// The core never constructs a concrete adapter. Adapters arrive injected,
// already authenticated, one per backend kind; the core submits opaque
// query specs through them and classifies failures with the error taxonomy
// defined here. Vendor query syntax lives entirely on the far side of the
// Adapter interface.
package backend
