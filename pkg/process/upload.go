package process

const (
	KeyPathTemplate = "path_template"
	KeyPublicAssets = "public_assets"
	KeyHeaders      = "headers"
	KeyS3URLs       = "s3_urls"
	KeyCollections  = "collections"

	publicAll = "ALL"
)

// UploadOptions 是合并后 upload_options 的类型化视图。
type UploadOptions struct {
	PathTemplate    string            `json:"path_template"`
	PublicAssets    []string          `json:"public_assets"`
	AllAssetsPublic bool              `json:"-"`
	Headers         map[string]string `json:"headers"`
	S3URLs          bool              `json:"s3_urls"`
}

// IsPublic 判断 asset 是否需要公开读。
func (u UploadOptions) IsPublic(key string) bool {
	if u.AllAssetsPublic {
		return true
	}
	for _, k := range u.PublicAssets {
		if k == key {
			return true
		}
	}
	return false
}

// DecodeUploadOptions 把 layer 解码为 UploadOptions，public_assets 支持 "ALL"。
func DecodeUploadOptions(layer ConfigLayer) (UploadOptions, error) {
	var out UploadOptions
	work := layer.Clone()
	if work == nil {
		return out, nil
	}
	if s, ok := work[KeyPublicAssets].(string); ok {
		if s != publicAll {
			return out, configErrorf("upload_options.public_assets", "expected a list of asset keys or %q, got %q", publicAll, s)
		}
		out.AllAssetsPublic = true
		delete(work, KeyPublicAssets)
	}
	if v, ok := work[KeyPathTemplate]; ok && v != nil {
		if _, isString := v.(string); !isString {
			return out, configErrorf("upload_options.path_template", "must be a string")
		}
	}
	if err := work.Decode(&out); err != nil {
		return UploadOptions{}, &ConfigurationError{Field: "upload_options", Msg: "invalid upload options", Err: err}
	}
	return out, nil
}
