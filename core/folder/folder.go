// Package folder notifies about files added or changed in shared course folders.
package folder

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-notify/core"
	"github.com/trezcool/masomo-notify/core/notification"
)

// ResourceType of shared folders. Publisher.Data holds the folder path within the file system.
const ResourceType = "folder"

const TitleKey = "folder.title"

var Messages = core.Messages{
	core.LocaleEnglish: {TitleKey: "New in folder {0}"},
	core.LocaleFrench:  {TitleKey: "Nouveau dans le dossier {0}"},
}

var iconClasses = map[string]string{
	".pdf":  "icon-file-pdf",
	".doc":  "icon-file-word",
	".docx": "icon-file-word",
	".odt":  "icon-file-word",
	".xls":  "icon-file-excel",
	".xlsx": "icon-file-excel",
	".ods":  "icon-file-excel",
	".ppt":  "icon-file-powerpoint",
	".pptx": "icon-file-powerpoint",
	".png":  "icon-file-image",
	".jpg":  "icon-file-image",
	".jpeg": "icon-file-image",
	".gif":  "icon-file-image",
	".mp3":  "icon-file-audio",
	".mp4":  "icon-file-video",
	".zip":  "icon-file-archive",
}

// Handler lists the files modified in a folder since the subscriber's last visit.
type Handler struct {
	files   fs.FS
	titles  notification.Titles
	baseURL string
}

var _ notification.Handler = (*Handler)(nil) // interface compliance check

func NewHandler(files fs.FS, titles notification.Titles, baseURL string) *Handler {
	return &Handler{files: files, titles: titles, baseURL: strings.TrimRight(baseURL, "/")}
}

// Data returns the publisher data of the folder at dir.
func Data(dir string, refs ...notification.ContextRef) notification.PublisherData {
	return notification.PublisherData{Data: cleanDir(dir), BusinessPath: notification.BusinessPath(refs...)}
}

func cleanDir(dir string) string {
	dir = strings.Trim(path.Clean("/"+strings.TrimSpace(dir)), "/")
	if dir == "" {
		return "."
	}
	return dir
}

func iconClass(name string) string {
	if icon, ok := iconClasses[strings.ToLower(path.Ext(name))]; ok {
		return icon
	}
	return "icon-file"
}

func (h *Handler) ComputeChanges(ctx context.Context, req notification.ChangeRequest) (notification.SubscriptionInfo, error) {
	dir := cleanDir(req.Publisher.Data)
	info, err := fs.Stat(h.files, dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return notification.SubscriptionInfo{}, notification.NewResourceGoneError(req.Publisher.Context(), "folder "+dir+" not found")
	case err != nil:
		return notification.SubscriptionInfo{}, errors.Wrap(err, "reading folder")
	case !info.IsDir():
		return notification.SubscriptionInfo{}, notification.NewResourceGoneError(req.Publisher.Context(), dir+" is not a folder")
	}

	var items []notification.ListItem
	err = fs.WalkDir(h.files, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		modTime := fi.ModTime().UTC()
		if !req.Since.Before(modTime) {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, dir), "/")
		items = append(items, notification.ListItem{
			Description: rel,
			URL:         h.fileURL(req.Publisher.ResourceID, rel),
			Timestamp:   modTime,
			IconClass:   iconClass(rel),
		})
		return nil
	})
	if err != nil {
		return notification.SubscriptionInfo{}, errors.Wrap(err, "walking folder")
	}
	if len(items) == 0 {
		return notification.SubscriptionInfo{}, nil
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Description < items[j].Description
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	name := path.Base(dir)
	if dir == "." {
		name = ""
	}
	return notification.SubscriptionInfo{
		Title: h.titles.InContext(ctx, req.Translator, TitleKey, name, req.Publisher.BusinessPath),
		Items: items,
	}, nil
}

func (h *Handler) fileURL(folderID int64, rel string) string {
	if h.baseURL == "" {
		return ""
	}
	return h.baseURL + "/folders/" + strconv.FormatInt(folderID, 10) + "/" + rel
}
