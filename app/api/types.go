package api

import (
	"github.com/neverbiasu/daily-news-rss/app/database"
	"github.com/neverbiasu/daily-news-rss/app/feed"
	"github.com/neverbiasu/daily-news-rss/app/sources"
	"github.com/neverbiasu/daily-news-rss/app/storage"
	"github.com/neverbiasu/daily-news-rss/app/tasks"
)

type Handler struct {
	store       *storage.SnapshotStore
	sourcesFile *sources.File
	archive     database.ArchiveRepository
	retention   *feed.Retention
	scheduler   tasks.TaskSchedulerInterface
	version     string
}
