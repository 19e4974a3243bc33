// Package browser implements the store gateway over the CMIS 1.1 browser
// binding: JSON over HTTP with succinct properties. It is selected through the
// "browser" binding name in the store factory registry.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"docsync/internal/store"
)

func init() {
	store.RegisterBinding("browser", func(opts any) (store.Gateway, error) {
		o, ok := opts.(Options)
		if !ok {
			return nil, fmt.Errorf("browser: options must be browser.Options, got %T", opts)
		}
		return New(o)
	})
}

// Options configure the browser binding client.
type Options struct {
	// URL is the browser binding service endpoint.
	URL      string
	User     string
	Password string
	// RepositoryID selects the repository; empty picks the first one the
	// service advertises.
	RepositoryID string
	Timeout      time.Duration
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client speaks the browser binding against one repository. Safe for
// concurrent use; the cached repository info is refreshed by LatestChangeToken.
type Client struct {
	opts Options
	http *http.Client

	mu   sync.Mutex
	repo *repositoryInfo
}

type repositoryInfo struct {
	ID            string
	RepositoryURL string
	RootFolderURL string
	ChangeToken   string
}

var _ store.Gateway = (*Client)(nil)

// New validates connectivity and returns a client bound to the repository.
func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("browser: service URL is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	c := &Client{opts: opts, http: hc}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := c.reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// reload fetches the service document and caches the selected repository's
// info, including its current changelog token.
func (c *Client) reload(ctx context.Context) (*repositoryInfo, error) {
	var repos map[string]struct {
		RepositoryID         string `json:"repositoryId"`
		RepositoryURL        string `json:"repositoryUrl"`
		RootFolderURL        string `json:"rootFolderUrl"`
		LatestChangeLogToken string `json:"latestChangeLogToken"`
	}
	if err := c.getJSON(ctx, c.opts.URL, nil, &repos); err != nil {
		return nil, fmt.Errorf("browser: fetch repository info: %w", err)
	}

	for id, r := range repos {
		if c.opts.RepositoryID != "" && id != c.opts.RepositoryID && r.RepositoryID != c.opts.RepositoryID {
			continue
		}
		info := &repositoryInfo{
			ID:            id,
			RepositoryURL: r.RepositoryURL,
			RootFolderURL: r.RootFolderURL,
			ChangeToken:   r.LatestChangeLogToken,
		}
		c.mu.Lock()
		c.repo = info
		c.mu.Unlock()
		return info, nil
	}
	return nil, fmt.Errorf("browser: repository %q not advertised by the service", c.opts.RepositoryID)
}

func (c *Client) info() (*repositoryInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.repo == nil {
		return nil, fmt.Errorf("browser: client not connected")
	}
	return c.repo, nil
}

// cmisObject is the browser binding's object envelope.
type cmisObject struct {
	SuccinctProperties map[string]any `json:"succinctProperties"`
	ChangeEventInfo    *struct {
		ChangeType string `json:"changeType"`
	} `json:"changeEventInfo"`
}

func handleFromObject(obj cmisObject) store.DocumentHandle {
	props := obj.SuccinctProperties
	h := store.DocumentHandle{Properties: props}
	h.ObjectID, _ = props[store.PropObjectID].(string)
	h.Name, _ = props[store.PropName].(string)
	h.CheckoutID, _ = props[store.PropCheckedOutID].(string)
	h.CheckoutBy, _ = props[store.PropCheckedOutBy].(string)
	if v, ok := props[store.PropContentStream].(string); ok && v != "" {
		h.HasContent = true
	}
	if v, ok := props["cmis:parentId"].(string); ok {
		h.ParentID = v
	}
	if v, ok := props["cmis:path"].(string); ok {
		h.Path = v
	}
	return h
}

func folderFromObject(obj cmisObject) store.Folder {
	props := obj.SuccinctProperties
	var f store.Folder
	f.ObjectID, _ = props[store.PropObjectID].(string)
	f.Name, _ = props[store.PropName].(string)
	f.Path, _ = props["cmis:path"].(string)
	return f
}

// ResolveFolder gets or creates a folder under parent. Children are listed
// first so an existing sibling is always reused, never duplicated.
func (c *Client) ResolveFolder(ctx context.Context, name string, typeID string, parent *store.Folder) (store.Folder, bool, error) {
	info, err := c.info()
	if err != nil {
		return store.Folder{}, false, err
	}
	parentID := ""
	if parent != nil {
		parentID = parent.ObjectID
	} else {
		root, err := c.objectByPath(ctx, "/")
		if err != nil {
			return store.Folder{}, false, fmt.Errorf("browser: resolve root folder: %w", err)
		}
		parentID = root.ObjectID
	}

	var children struct {
		Objects []struct {
			Object cmisObject `json:"object"`
		} `json:"objects"`
	}
	q := url.Values{
		"objectId":           {parentID},
		"cmisselector":       {"children"},
		"succinctProperties": {"true"},
	}
	if err := c.getJSON(ctx, info.RootFolderURL, q, &children); err != nil {
		return store.Folder{}, false, fmt.Errorf("browser: list children: %w", err)
	}
	for _, child := range children.Objects {
		f := folderFromObject(child.Object)
		if f.Name == name {
			return f, false, nil
		}
	}

	if typeID == "" {
		typeID = store.TypeFolder
	}
	form := url.Values{
		"cmisaction":         {"createFolder"},
		"objectId":           {parentID},
		"succinctProperties": {"true"},
	}
	addProperty(form, 0, store.PropObjectTypeID, typeID)
	addProperty(form, 1, store.PropName, name)
	var created cmisObject
	if err := c.postForm(ctx, info.RootFolderURL, form, &created); err != nil {
		return store.Folder{}, false, fmt.Errorf("browser: create folder %q: %w", name, err)
	}
	return folderFromObject(created), true, nil
}

// ResolvePath looks up a folder by absolute path.
func (c *Client) ResolvePath(ctx context.Context, path string) (store.Folder, error) {
	obj, err := c.objectByPathRaw(ctx, path)
	if err != nil {
		return store.Folder{}, err
	}
	return folderFromObject(obj), nil
}

func (c *Client) objectByPath(ctx context.Context, path string) (store.DocumentHandle, error) {
	obj, err := c.objectByPathRaw(ctx, path)
	if err != nil {
		return store.DocumentHandle{}, err
	}
	return handleFromObject(obj), nil
}

func (c *Client) objectByPathRaw(ctx context.Context, path string) (cmisObject, error) {
	info, err := c.info()
	if err != nil {
		return cmisObject{}, err
	}
	target := strings.TrimRight(info.RootFolderURL, "/") + escapePath(path)
	var obj cmisObject
	q := url.Values{
		"cmisselector":       {"object"},
		"succinctProperties": {"true"},
	}
	if err := c.getJSON(ctx, target, q, &obj); err != nil {
		return cmisObject{}, err
	}
	return obj, nil
}

// QueryDocumentByIdentifier resolves the latest document version carrying the
// business identifier, including its parent folder id.
func (c *Client) QueryDocumentByIdentifier(ctx context.Context, identifier string) (store.DocumentHandle, error) {
	info, err := c.info()
	if err != nil {
		return store.DocumentHandle{}, err
	}
	statement := fmt.Sprintf(
		"SELECT * FROM %s WHERE %s = '%s'",
		store.TypeDocument[2:], store.PropIdentifier, escapeQueryLiteral(identifier),
	)
	form := url.Values{
		"cmisaction":         {"query"},
		"statement":          {statement},
		"searchAllVersions":  {"false"},
		"succinctProperties": {"true"},
		"maxItems":           {"1"},
	}
	var result struct {
		Results []cmisObject `json:"results"`
	}
	if err := c.postForm(ctx, info.RepositoryURL, form, &result); err != nil {
		return store.DocumentHandle{}, fmt.Errorf("browser: query: %w", err)
	}
	if len(result.Results) == 0 {
		return store.DocumentHandle{}, fmt.Errorf("%w: identifier %q", store.ErrNotFound, identifier)
	}
	handle := handleFromObject(result.Results[0])
	if handle.ParentID == "" {
		if parentID, err := c.firstParent(ctx, handle.ObjectID); err == nil {
			handle.ParentID = parentID
		}
	}
	return handle, nil
}

func (c *Client) firstParent(ctx context.Context, objectID string) (string, error) {
	info, err := c.info()
	if err != nil {
		return "", err
	}
	var parents []struct {
		Object cmisObject `json:"object"`
	}
	q := url.Values{
		"objectId":           {objectID},
		"cmisselector":       {"parents"},
		"succinctProperties": {"true"},
	}
	if err := c.getJSON(ctx, info.RootFolderURL, q, &parents); err != nil {
		return "", err
	}
	if len(parents) == 0 {
		return "", fmt.Errorf("%w: object %q has no parent", store.ErrNotFound, objectID)
	}
	id, _ := parents[0].Object.SuccinctProperties[store.PropObjectID].(string)
	return id, nil
}

// GetObject fetches a live object by id.
func (c *Client) GetObject(ctx context.Context, objectID string) (store.DocumentHandle, error) {
	info, err := c.info()
	if err != nil {
		return store.DocumentHandle{}, err
	}
	var obj cmisObject
	q := url.Values{
		"objectId":           {objectID},
		"cmisselector":       {"object"},
		"succinctProperties": {"true"},
	}
	if err := c.getJSON(ctx, info.RootFolderURL, q, &obj); err != nil {
		return store.DocumentHandle{}, err
	}
	return handleFromObject(obj), nil
}

// CreateDocument creates a document with properties and content in one call.
func (c *Client) CreateDocument(ctx context.Context, parent store.Folder, name string, properties map[string]any, content io.Reader, contentType string) (store.DocumentHandle, error) {
	info, err := c.info()
	if err != nil {
		return store.DocumentHandle{}, err
	}
	fields := url.Values{
		"cmisaction":         {"createDocument"},
		"objectId":           {parent.ObjectID},
		"succinctProperties": {"true"},
	}
	i := 0
	addProperty(fields, i, store.PropName, name)
	i++
	for key, value := range properties {
		if key == store.PropName {
			continue
		}
		addProperty(fields, i, key, value)
		i++
	}
	var created cmisObject
	if err := c.postMultipart(ctx, info.RootFolderURL, fields, name, content, contentType, &created); err != nil {
		return store.DocumentHandle{}, fmt.Errorf("browser: create document: %w", err)
	}
	return handleFromObject(created), nil
}

// GetContent streams the object's content. A missing content stream yields an
// empty reader, not an error.
func (c *Client) GetContent(ctx context.Context, handle store.DocumentHandle) (io.ReadCloser, error) {
	info, err := c.info()
	if err != nil {
		return nil, err
	}
	q := url.Values{
		"objectId":     {handle.ObjectID},
		"cmisselector": {"content"},
	}
	req, err := c.newRequest(ctx, http.MethodGet, info.RootFolderURL+"?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp.Body, nil
}

// SetContent overwrites the content stream, creating a new version.
func (c *Client) SetContent(ctx context.Context, handle store.DocumentHandle, content io.Reader, contentType string) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	fields := url.Values{
		"cmisaction":    {"setContent"},
		"objectId":      {handle.ObjectID},
		"overwriteFlag": {"true"},
	}
	return c.postMultipart(ctx, info.RootFolderURL, fields, handle.Name, content, contentType, nil)
}

// UpdateProperties sends the property diff. A stale handle surfaces as
// store.ErrConflict.
func (c *Client) UpdateProperties(ctx context.Context, handle store.DocumentHandle, diff map[string]any) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	form := url.Values{
		"cmisaction":         {"update"},
		"objectId":           {handle.ObjectID},
		"succinctProperties": {"true"},
	}
	i := 0
	for key, value := range diff {
		addProperty(form, i, key, value)
		i++
	}
	return c.postForm(ctx, info.RootFolderURL, form, nil)
}

// Checkout creates a working copy; an existing one surfaces as store.ErrLocked.
func (c *Client) Checkout(ctx context.Context, handle store.DocumentHandle) (store.Lock, error) {
	info, err := c.info()
	if err != nil {
		return store.Lock{}, err
	}
	form := url.Values{
		"cmisaction":         {"checkOut"},
		"objectId":           {handle.ObjectID},
		"succinctProperties": {"true"},
	}
	var pwc cmisObject
	if err := c.postForm(ctx, info.RootFolderURL, form, &pwc); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return store.Lock{}, fmt.Errorf("%w: %s", store.ErrLocked, handle.ObjectID)
		}
		return store.Lock{}, err
	}
	props := pwc.SuccinctProperties
	lock := store.Lock{ObjectID: handle.ObjectID}
	lock.CheckoutID, _ = props[store.PropCheckedOutID].(string)
	lock.CheckoutBy, _ = props[store.PropCheckedOutBy].(string)
	if lock.CheckoutID == "" {
		lock.CheckoutID, _ = props[store.PropObjectID].(string)
	}
	return lock, nil
}

// CancelCheckout discards the working copy.
func (c *Client) CancelCheckout(ctx context.Context, lock store.Lock) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	form := url.Values{
		"cmisaction": {"cancelCheckOut"},
		"objectId":   {lock.CheckoutID},
	}
	return c.postForm(ctx, info.RootFolderURL, form, nil)
}

// Checkin commits the working copy as the new latest version.
func (c *Client) Checkin(ctx context.Context, lock store.Lock) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	form := url.Values{
		"cmisaction": {"checkIn"},
		"objectId":   {lock.CheckoutID},
		"major":      {"true"},
	}
	return c.postForm(ctx, info.RootFolderURL, form, nil)
}

// Move moves the object between folders.
func (c *Client) Move(ctx context.Context, handle store.DocumentHandle, from, to store.Folder) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	form := url.Values{
		"cmisaction":     {"move"},
		"objectId":       {handle.ObjectID},
		"sourceFolderId": {from.ObjectID},
		"targetFolderId": {to.ObjectID},
	}
	return c.postForm(ctx, info.RootFolderURL, form, nil)
}

// Delete removes the object and all its versions.
func (c *Client) Delete(ctx context.Context, handle store.DocumentHandle) error {
	info, err := c.info()
	if err != nil {
		return err
	}
	form := url.Values{
		"cmisaction":  {"delete"},
		"objectId":    {handle.ObjectID},
		"allVersions": {"true"},
	}
	return c.postForm(ctx, info.RootFolderURL, form, nil)
}

// LatestChangeToken refreshes the repository info and returns the current
// changelog watermark. A repository without a changelog token is a
// configuration problem, not an empty feed.
func (c *Client) LatestChangeToken(ctx context.Context) (int64, error) {
	info, err := c.reload(ctx)
	if err != nil {
		return 0, err
	}
	if info.ChangeToken == "" {
		return 0, fmt.Errorf("browser: repository %q advertises no changelog token", info.ID)
	}
	token, err := strconv.ParseInt(info.ChangeToken, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("browser: malformed changelog token %q: %w", info.ChangeToken, err)
	}
	return token, nil
}

// GetChanges opens a lazy one-shot iterator over the changelog window. Pages
// are fetched on demand; the cursor cannot be restarted.
func (c *Client) GetChanges(ctx context.Context, sinceToken int64, maxItems int64) (store.ChangeIterator, error) {
	info, err := c.info()
	if err != nil {
		return nil, err
	}
	return &changeIterator{
		client:    c,
		ctx:       ctx,
		url:       info.RepositoryURL,
		nextToken: strconv.FormatInt(sinceToken, 10),
		remaining: maxItems,
		hasMore:   true,
	}, nil
}

func addProperty(form url.Values, index int, id string, value any) {
	form.Set(fmt.Sprintf("propertyId[%d]", index), id)
	if value == nil {
		form.Set(fmt.Sprintf("propertyValue[%d]", index), "")
		return
	}
	form.Set(fmt.Sprintf("propertyValue[%d]", index), fmt.Sprint(value))
}

func escapeQueryLiteral(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

func escapePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
