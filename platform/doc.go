// Package platform defines the sandbox platform abstraction layer: the
// WrapConfig shape and Platform interface that the root sx package's
// merge engine targets. Most callers should go through the root package,
// which selects and configures the appropriate Platform automatically.
// Import this package directly only if you need to inspect platform
// capabilities or implement a custom Platform.
package platform
