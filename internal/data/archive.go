package data

import (
	"bytes"
	"context"
	"log"

	"github.com/minio/minio-go/v7"
)

// ArchiveSnapshot 将抓取到的原始 HTML 归档到 MinIO
// 归档失败不影响摄取流程，只打日志 (best-effort)
func (d *Data) ArchiveSnapshot(ctx context.Context, documentID string, raw []byte) {
	objectName := documentID + ".html"

	_, err := d.Minio.PutObject(ctx, d.cfg.Data.MinioBucket, objectName,
		bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "text/html"})
	if err != nil {
		log.Printf("⚠️ 快照归档失败: %s (%v)", objectName, err)
		return
	}
	log.Printf("✅ 原始快照已归档: %s (Size: %d)", objectName, len(raw))
}

// GetSnapshot 读取归档的原始 HTML (调试 / 重新解析用)
func (d *Data) GetSnapshot(ctx context.Context, documentID string) (*minio.Object, error) {
	return d.Minio.GetObject(ctx, d.cfg.Data.MinioBucket, documentID+".html", minio.GetObjectOptions{})
}
