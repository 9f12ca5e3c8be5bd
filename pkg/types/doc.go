// Package types defines the property bag, application metadata, the admin
// store gateway interface, configuration, and the error taxonomy shared by
// every ssoconfig package.
//
// The gateway interface mirrors the narrow administrative API of the backing
// store: applications are created with a fixed schema, property bags are
// written and read whole, and fields can only disappear by deleting the whole
// application.
package types
