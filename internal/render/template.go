package render

// cardTemplate is the capture document. The selectors are part of the
// contract with the capture pipeline: #capture-root is the screenshot
// target, #tweet-card wraps the primary post, each media slot is a
// .media-item, and video slots carry a .video-badge inside the item.
const cardTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
    background: transparent;
  }
  #capture-root {
    width: {{.Width}}px;
    padding: 40px;
    border-radius: 32px;
    background: {{if .Dark}}#15202b{{else}}#ffffff{{end}};
    color: {{if .Dark}}#f7f9f9{{else}}#0f1419{{end}};
  }
  .post { margin-bottom: 28px; }
  .post:last-child { margin-bottom: 0; }
  .author { display: flex; align-items: center; gap: 20px; margin-bottom: 24px; }
  .avatar { width: 96px; height: 96px; border-radius: 50%; object-fit: cover; }
  .avatar-fallback {
    width: 96px; height: 96px; border-radius: 50%;
    background: {{if .Dark}}#38444d{{else}}#cfd9de{{end}};
  }
  .name { font-size: {{.UIFontSize}}px; font-weight: 700; line-height: 1.2; }
  .handle { font-size: {{.UIFontSize}}px; color: {{if .Dark}}#8b98a5{{else}}#536471{{end}}; line-height: 1.2; }
  .body { font-size: {{.BodyFontSize}}px; line-height: 1.3; white-space: pre-wrap; word-wrap: break-word; }
  .media { margin-top: 28px; }
  .media-grid { display: grid; gap: 16px; margin-top: 28px; }
  .media-grid.count-1, .media-grid.media-grid-vertical { grid-template-columns: 1fr; }
  .media-grid.count-2, .media-grid.count-3, .media-grid.count-4 { grid-template-columns: 1fr 1fr; }
  .media-grid.media-grid-vertical-tight { gap: 0; }
  .media-item {
    position: relative;
    border-radius: 24px;
    overflow: hidden;
    margin-top: 16px;
    border: 1px solid {{if .Dark}}#38444d{{else}}#cfd9de{{end}};
  }
  .media-item:first-child, .media-grid .media-item { margin-top: 0; }
  .media-grid.media-grid-vertical-tight .media-item { border-radius: 0; }
  .media-item img { display: block; width: 100%; }
  .video-badge {
    position: absolute;
    inset: 0;
    display: flex;
    align-items: center;
    justify-content: center;
    pointer-events: none;
  }
  .video-badge span {
    width: 120px; height: 120px; border-radius: 50%;
    background: rgba(0, 0, 0, 0.55);
    display: flex; align-items: center; justify-content: center;
    color: #fff; font-size: 56px;
  }
  .video-placeholder {
    width: 100%;
    aspect-ratio: 16 / 9;
    background: {{if .Dark}}#1e2732{{else}}#e7e9ea{{end}};
  }
  .shared, .shared-card {
    margin-top: 28px;
    border: 1px solid {{if .Dark}}#38444d{{else}}#cfd9de{{end}};
    border-radius: 24px;
    padding: 28px;
  }
  .shared .avatar, .shared .avatar-fallback { width: 64px; height: 64px; }
  .shared-kind {
    font-size: {{.UIFontSize}}px;
    color: {{if .Dark}}#8b98a5{{else}}#536471{{end}};
    margin-bottom: 16px;
  }
  .reply {
    border-bottom: 1px solid {{if .Dark}}#38444d{{else}}#cfd9de{{end}};
    padding-bottom: 28px;
    margin-bottom: 28px;
  }
  .article {
    margin-top: 28px;
    border: 1px solid {{if .Dark}}#38444d{{else}}#cfd9de{{end}};
    border-radius: 24px;
    overflow: hidden;
  }
  .article img { display: block; width: 100%; }
  .article .title { font-size: {{.UIFontSize}}px; font-weight: 700; padding: 24px; }
  .meta {
    margin-top: 28px;
    font-size: {{.UIFontSize}}px;
    color: {{if .Dark}}#8b98a5{{else}}#536471{{end}};
  }
</style>
</head>
<body>
<div id="capture-root">
  {{range .ReplyChain}}
  <div class="post reply">{{template "post" .}}</div>
  {{end}}
  <div class="post" id="tweet-card">
    {{template "post" .Root}}
    {{if not .SeparateShared}}{{with .Shared}}
    <div class="shared">
      {{if .Kind}}<div class="shared-kind">{{if eq .Kind "repost"}}Reposted{{else}}Quoted{{end}}</div>{{end}}
      {{template "post" .}}
    </div>
    {{end}}{{end}}
    {{if .Root.Timestamp}}<div class="meta">{{.Root.Timestamp}}{{with .Root.Source}} &middot; {{.}}{{end}}</div>{{end}}
    {{if or .Stats.Reposts .Stats.Likes .Stats.Views}}
    <div class="meta">
      {{with .Stats.Reposts}}<span>{{.}} reposts</span> {{end}}
      {{with .Stats.Likes}}<span>{{.}} likes</span> {{end}}
      {{with .Stats.Views}}<span>{{.}} views</span>{{end}}
    </div>
    {{end}}
  </div>
  {{if .SeparateShared}}{{with .Shared}}
  <div class="post shared-card" id="shared-card">
    {{if .Kind}}<div class="shared-kind">{{if eq .Kind "repost"}}Reposted{{else}}Quoted{{end}}</div>{{end}}
    {{template "post" .}}
  </div>
  {{end}}{{end}}
</div>
</body>
</html>

{{define "post"}}
<div class="author">
  {{if .AvatarURL}}<img class="avatar" src="{{.AvatarURL}}" alt="">{{else}}<div class="avatar-fallback"></div>{{end}}
  <div>
    <div class="name">{{.Name}}</div>
    {{if .Handle}}<div class="handle">@{{.Handle}}</div>{{end}}
  </div>
</div>
{{if .Text}}<div class="body">{{.Text}}</div>{{end}}
{{if .Photos}}
<div class="media-grid {{.PhotoGridClass}}">
  {{range .Photos}}
  <div class="media-item" data-media-key="{{.Key}}"><img src="{{.URL}}" alt=""></div>
  {{end}}
</div>
{{end}}
{{if .Videos}}
<div class="media">
  {{range .Videos}}
  <div class="media-item" data-media-key="{{.Key}}">
    {{if .HasThumb}}<img src="{{.Thumb}}" alt="">{{else}}<div class="video-placeholder"></div>{{end}}
    <div class="video-badge"><span>&#9658;</span></div>
  </div>
  {{end}}
</div>
{{end}}
{{with .Article}}
<div class="article">
  {{if .CoverImage}}<img src="{{.CoverImage}}" alt="">{{end}}
  {{if .Title}}<div class="title">{{.Title}}</div>{{end}}
</div>
{{end}}
{{end}}`
