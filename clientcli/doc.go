// Package clientcli is a client library for imghost servers.
//
// It runs the two-step upload (request a presigned URL, PUT the bytes,
// complete), lists the caller's gallery, downloads and deletes images. Calls
// authenticate with an API key sent in the X-API-Key header.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "http://localhost:5708",
//		APIKey:   "your-api-key",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./cat.png",
//	})
//
// # Profile Configuration
//
// Profiles keep endpoints and keys for several servers in
// ~/.imghost/config.yaml:
//
//	file, err := clientcli.LoadConfigFile(clientcli.ConfigPath(""))
//	cfg, err := clientcli.Resolve(file, clientcli.Overrides{Profile: "production"})
//	client, err := clientcli.New(cfg)
//
// Resolve applies IMGHOST_ENDPOINT and IMGHOST_API_KEY over the profile,
// and the overrides over both.
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
