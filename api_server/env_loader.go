package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"

	"github.com/joho/godotenv"
)

// loadEnv 依次尝试 ENV_FILE、当前目录、上级目录的 .env.<os>，返回实际加载的文件（未加载为空）
func loadEnv() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		if err := godotenv.Overload(p); err != nil {
			log.Printf("[env] load %s failed: %v", p, err)
			return ""
		}
		log.Printf("[env] loaded: %s", p)
		return p
	}

	names := []string{".env.linux", "env.linux"}
	if runtime.GOOS == "windows" {
		names = []string{".env.windows", "env.windows"}
	}
	// 从 api_server 目录启动时回退到仓库根目录
	for _, dir := range []string{".", ".."} {
		for _, n := range names {
			p := filepath.Join(dir, n)
			if !fileExists(p) {
				continue
			}
			if err := godotenv.Overload(p); err != nil {
				log.Printf("[env] load %s failed: %v", p, err)
				continue
			}
			log.Printf("[env] loaded: %s", p)
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
