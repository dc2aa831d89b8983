// Package media uploads images to the hosted media service.
package media

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/pkg/errors"
)

// Kind selects the folder and resize transformation for an upload.
type Kind string

const (
	KindCover  Kind = "covers"
	KindAvatar Kind = "avatars"
)

var transformations = map[Kind]string{
	KindCover:  "c_limit,w_1600,q_auto",
	KindAvatar: "c_limit,w_400,h_400,q_auto",
}

type Asset struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

// OwnedBy reports whether publicID names an asset of the given kind that was
// uploaded for owner. Upload names assets "<owner>_<suffix>" below a folder
// ending in the kind, optionally under a root folder.
func OwnedBy(publicID string, kind Kind, owner string) bool {
	dir, name := path.Split(publicID)
	if owner == "" || path.Base(path.Clean(dir)) != string(kind) {
		return false
	}
	return strings.HasPrefix(name, owner+"_") && len(name) > len(owner)+1
}

type Uploader interface {
	Upload(ctx context.Context, file io.Reader, kind Kind, publicID string) (*Asset, error)
	Destroy(ctx context.Context, publicID string) error
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinary builds an uploader from a cloudinary:// URL. Assets are
// stored below root/<kind>.
func NewCloudinary(url, root string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary configuration")
	}
	return &Cloudinary{cld: cld, folder: root}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, kind Kind, publicID string) (*Asset, error) {
	params := uploader.UploadParams{
		Folder:         c.folder + "/" + string(kind),
		PublicID:       publicID,
		Transformation: transformations[kind],
	}

	result, err := c.cld.Upload.Upload(ctx, file, params)
	if err != nil {
		return nil, errors.Wrap(err, "cloudinary upload")
	}
	if result.Error.Message != "" {
		return nil, errors.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return &Asset{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	result, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return errors.Wrap(err, "cloudinary destroy")
	}
	if result.Error.Message != "" {
		return errors.Errorf("cloudinary destroy: %s", result.Error.Message)
	}
	return nil
}

// Disabled rejects every upload. It stands in when no media host is configured.
type Disabled struct{}

var ErrDisabled = errors.New("media uploads are not configured")

func (Disabled) Upload(context.Context, io.Reader, Kind, string) (*Asset, error) {
	return nil, ErrDisabled
}

func (Disabled) Destroy(context.Context, string) error { return nil }
