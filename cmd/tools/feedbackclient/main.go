package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/feedback-collector/backend/internal/config"
	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] 无法加载 .env，改用系统环境变量: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("配置加载失败: %v", err)
	}

	session := flag.String("session", "", "要回复的 sessionID")
	text := flag.String("text", "", "反馈文本，留空则只打印收到的消息")
	attach := flag.String("attach", "", "附件路径，多个用逗号分隔；图片归入 images，其余归入 files")
	server := flag.String("server", cfg.Server.BaseURL(), "反馈服务地址")
	timeout := flag.Duration("timeout", 5*time.Minute, "等待 session_complete 的超时时间")

	flag.Parse()

	if *session == "" {
		flag.Usage()
		log.Fatal("请通过 -session 指定会话")
	}

	wsURL, err := websocketURL(*server, *session)
	if err != nil {
		log.Fatalf("无效的服务地址: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("连接失败 %s: %v", wsURL, err)
	}
	defer conn.Close()
	log.Printf("已连接 %s", wsURL)

	deadline := time.Now().Add(*timeout)
	sent := false
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg feedback.OutboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			log.Fatalf("读取消息失败: %v", err)
		}

		switch msg.Type {
		case feedback.MessageAgentMessage:
			fmt.Printf("\n=== 工作汇报 ===\n%s\n\n", msg.Content)
			if *text == "" || sent {
				continue
			}
			data, err := buildFeedback(*text, *attach)
			if err != nil {
				log.Fatalf("构建反馈失败: %v", err)
			}
			if err := conn.WriteJSON(map[string]any{"type": feedback.MessageUserFeedback, "data": data}); err != nil {
				log.Fatalf("发送反馈失败: %v", err)
			}
			sent = true
			log.Printf("反馈已发送 (图片 %d, 文件 %d)", len(data.Images), len(data.Files))
		case feedback.MessageFeedbackReceived:
			log.Printf("服务端确认: %s", msg.Message)
		case feedback.MessageSessionComplete:
			log.Println("会话已完成")
			return
		default:
			log.Printf("忽略未知消息类型: %s", msg.Type)
		}
	}
}

func websocketURL(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/" + url.PathEscape(sessionID)
	return u.String(), nil
}

func buildFeedback(text, attach string) (feedback.FeedbackData, error) {
	data := feedback.FeedbackData{
		Text:   text,
		Images: []feedback.Attachment{},
		Files:  []feedback.Attachment{},
	}
	for _, path := range strings.Split(attach, ",") {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return data, fmt.Errorf("read %s: %w", path, err)
		}
		mtype := mimetype.Detect(raw)
		item := feedback.Attachment{
			Name: filepath.Base(path),
			Type: mtype.String(),
			Size: int64(len(raw)),
			Data: "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(raw),
		}
		if strings.HasPrefix(mtype.String(), "image/") {
			data.Images = append(data.Images, item)
		} else {
			data.Files = append(data.Files, item)
		}
	}
	return data, nil
}
