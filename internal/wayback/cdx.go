package wayback

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/waybackmirror/internal/models"
	"github.com/RecoveryAshes/waybackmirror/internal/utils"
)

// cdxPath CDX索引API路径
const cdxPath = "/cdx/search/cdx"

// ListSnapshots 查询某URL在可选日期范围内的可用快照
//
// 向CDX索引发起一次查询: JSON输出,字段timestamp/original/statuscode/digest,
// 仅保留HTTP 200的捕获,按digest折叠(内容未变化的捕获由索引端预先去重)。
// 响应是二维表,首行为表头,其余为数据行,保留服务端返回顺序(时间升序)。
//
// 空响应或仅有表头 → 空切片,nil错误
// 传输失败(重试耗尽后) → 错误,由调用方统一按"无快照"处理
func (c *Client) ListSnapshots(ctx context.Context, targetURL, fromDate, toDate string) ([]models.Snapshot, error) {
	if targetURL == "" {
		return nil, fmt.Errorf("目标URL为空")
	}
	if err := models.ValidateDate(fromDate); err != nil {
		return nil, err
	}
	if err := models.ValidateDate(toDate); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("url", targetURL)
	params.Set("output", "json")
	params.Set("fl", "timestamp,original,statuscode,digest")
	params.Set("filter", "statuscode:200")
	params.Set("collapse", "digest")
	if fromDate != "" {
		params.Set("from", fromDate)
	}
	if toDate != "" {
		params.Set("to", toDate)
	}

	utils.Debugf("查询快照索引: url=%s from=%s to=%s", targetURL, fromDate, toDate)

	resp, err := c.Get(ctx, c.baseURL+cdxPath, params)
	if err != nil {
		return nil, fmt.Errorf("查询快照索引失败 [%s]: %w", targetURL, err)
	}

	return parseCDXResponse(resp.Body)
}

// parseCDXResponse 解析CDX的JSON二维表响应
// 首行是表头(列名),数据行映射为Snapshot,保留原始顺序
func parseCDXResponse(body []byte) ([]models.Snapshot, error) {
	if strings.TrimSpace(string(body)) == "" {
		return []models.Snapshot{}, nil
	}

	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("解析CDX响应失败: %w", err)
	}

	// 无数据行(空表或仅有表头)
	if len(rows) < 2 {
		return []models.Snapshot{}, nil
	}

	snapshots := make([]models.Snapshot, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < 4 {
			utils.Warnf("跳过字段不完整的CDX行: %v", row)
			continue
		}

		statusCode, err := strconv.Atoi(row[2])
		if err != nil {
			utils.Warnf("跳过状态码非法的CDX行: %v", row)
			continue
		}

		snapshots = append(snapshots, models.Snapshot{
			Timestamp:   row[0],
			OriginalURL: row[1],
			StatusCode:  statusCode,
			Digest:      row[3],
		})
	}

	return snapshots, nil
}
