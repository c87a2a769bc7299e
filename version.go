package rpc

var VersionStr = "0.1.0"
