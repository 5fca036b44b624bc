package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type route struct {
	method string
	path   string
}

var actions = map[string]route{
	"status":        {http.MethodGet, "/api/session"},
	"probe":         {http.MethodPost, "/api/session/probe"},
	"connect":       {http.MethodPost, "/api/session/connect"},
	"mint":          {http.MethodPost, "/api/session/mint"},
	"notifications": {http.MethodGet, "/api/notifications"},
	"links":         {http.MethodGet, "/api/links"},
	"wallet_init":   {http.MethodPost, "/api/wallet_init"},
}

func main() {
	// 1. 定义命令行参数
	server := flag.String("server", "http://localhost:8888", "nftminter 服务地址")
	action := flag.String("action", "status", "操作: status, probe, connect, mint, notifications, links, wallet_init")
	name := flag.String("name", "My-CLI-Wallet", "wallet_init 时钱包的名称")
	wait := flag.Duration("wait", 0, "mint 后轮询通知的最长时间 (例如 2m)")
	flag.Parse()

	rt, ok := actions[*action]
	if !ok {
		log.Fatalf("错误: 未知操作 %q", *action)
	}

	var body []byte
	if *action == "wallet_init" {
		var err error
		body, err = json.Marshal(map[string]interface{}{"name": *name})
		if err != nil {
			log.Fatalf("错误: 无法打包 JSON 数据: %v", err)
		}
	}

	status, resp := call(*server, rt, body)
	fmt.Println("\n--- 响应结果 ---")
	fmt.Printf("HTTP 状态码: %d\n", status)
	fmt.Printf("响应体: %s\n", resp)

	if *action == "mint" && status == http.StatusOK && *wait > 0 {
		waitForNotification(*server, *wait)
	}
}

func call(server string, rt route, body []byte) (int, string) {
	url := strings.TrimRight(server, "/") + rt.path
	req, err := http.NewRequest(rt.method, url, bytes.NewBuffer(body))
	if err != nil {
		log.Fatalf("错误: 无法创建请求: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 35 * time.Second}
	fmt.Printf("正向 %s %s 发送请求...\n", rt.method, url)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("错误: 发送请求失败: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("错误: 读取响应体失败: %v", err)
	}
	return resp.StatusCode, string(data)
}

// waitForNotification polls the notification feed until something arrives.
func waitForNotification(server string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		time.Sleep(5 * time.Second)
		_, resp := call(server, actions["notifications"], nil)

		var feed struct {
			Notifications []struct {
				Kind    string `json:"kind"`
				Message string `json:"message"`
			} `json:"notifications"`
		}
		if err := json.Unmarshal([]byte(resp), &feed); err != nil {
			log.Fatalf("错误: 解析通知失败: %v", err)
		}
		for _, n := range feed.Notifications {
			fmt.Printf("🔔 [%s] %s\n", n.Kind, n.Message)
		}
		if len(feed.Notifications) > 0 {
			return
		}
	}
	fmt.Println("等待超时, 稍后可使用 -action notifications 查看")
}
