package apiframework

// version is set at build time with
// -ldflags "-X github.com/contenox/pkgbot/apiframework.version=v1.2.3".
var version = "dev"

type AboutServer struct {
	Version        string `json:"version"`
	NodeInstanceID string `json:"nodeInstanceID"`
}

func GetVersion() string {
	return version
}
