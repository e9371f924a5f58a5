// Package registry publishes and retrieves audio banks in OCI registries.
//
// A bank is stored as an OCI 1.1 artifact: an empty config, one layer
// holding the AURB blob and an optional layer holding its JSON metadata.
// The Client talks to registries through ORAS; Transport exposes banks to
// the loader under oci:// URLs.
package registry
