// Package aurb loads game audio from AURB banks and publishes banks to OCI
// registries.
//
// A bank is either a manifest (JSON, JSONC or YAML) that lists assets by
// URL, or a binary AURB file that packs the encoded audio of many assets
// behind a hashed index. [Client] combines the asset [loader.Loader] with a
// [registry.Client] so banks can be loaded from http(s), local files, and
// oci:// references alike.
//
// # Quick Start
//
// Load a manifest and play from the decoded buffers:
//
//	c, err := aurb.NewClient(aurb.WithCacheDir("/var/cache/aurb"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	if err := c.LoadBankURL(ctx, "https://cdn.example.com/sfx/bank.json"); err != nil {
//	    return err
//	}
//	buf := c.Buffer("kick")
//
// Publish a binary bank and load it back by reference:
//
//	blob, meta, err := aurb.Encode(assets, aurb.WithBankID("sfx"))
//	if err != nil {
//	    return err
//	}
//	if _, err := c.Push(ctx, "oci://ghcr.io/acme/sfx:v1", blob, meta); err != nil {
//	    return err
//	}
//	err = c.LoadRef(ctx, "oci://ghcr.io/acme/sfx:v1")
//
// The subpackages expose the pieces individually: [bank] for the binary
// format, [manifest] for bank manifests, [loader] for the asset cache,
// [fetch] for transports and retry, [stream] for streamed media, [decode]
// for PCM decoding, and [registry] for OCI distribution.
package aurb
