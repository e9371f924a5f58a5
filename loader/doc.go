// Package loader caches audio assets with reference-counted lifetimes.
//
// A [Loader] holds one entry per asset id. Each entry has a loading mode:
//
//   - preload: the source is fetched and decoded before Load returns.
//   - stream: a lazily buffering [stream.Media] is bound to the source.
//   - lazy: only the resolved source is recorded; [Loader.EnsureReady]
//     decodes it on first use, once.
//
// Every Load adds a reference and every Release drops one; the entry is
// removed when the count reaches zero. Banks load many assets at once and
// register groups, each holding one extra reference on its members, so a
// whole group can be unloaded in one call.
//
// Banks arrive either as manifests (loose files) or as binary AURB banks,
// whose assets are served from the decoded catalog through aurb:// sources.
package loader
