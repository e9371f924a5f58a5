// Command aurb packs, inspects, publishes, and loads AURB audio banks.
//
// Usage:
//
//	aurb pack -o sfx.aurb kick.wav snare.wav theme.ogg
//	aurb inspect sfx.aurb
//	aurb extract -d out sfx.aurb
//	aurb push oci://ghcr.io/acme/sfx:v1 sfx.aurb
//	aurb pull -o sfx.aurb oci://ghcr.io/acme/sfx:v1
//	aurb load bank.json
//
// Settings come from ~/.config/aurb/config.toml (or ./aurb.toml); flags
// override them.
package main
