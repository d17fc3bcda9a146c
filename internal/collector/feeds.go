package collector

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFeedURLs 读取每行一个地址的订阅列表，去掉首尾空白并忽略空行。
// 文件不存在时返回的错误满足 errors.Is(err, fs.ErrNotExist)。
func LoadFeedURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feed list: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read feed list: %w", err)
	}
	return urls, nil
}
